package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"strings"
)

// Crockford-style alphabet: no 0/O or 1/I lookalikes, so codes survive
// being read over the phone.
const backupCodeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

const (
	// BackupCodeCount is how many codes a single setup issues.
	BackupCodeCount = 10
	// BackupCodeLength is the code length before display formatting.
	BackupCodeLength = 10
)

// NewBackupCodes generates BackupCodeCount random single-use codes. Only
// their hashes are persisted; the plaintext is shown to the account holder
// exactly once.
func NewBackupCodes() ([]string, error) {
	codes := make([]string, 0, BackupCodeCount)
	for i := 0; i < BackupCodeCount; i++ {
		code, err := newBackupCode(BackupCodeLength)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func newBackupCode(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	max := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// FormatBackupCode inserts the display hyphen (ABCDE-FGHJK).
func FormatBackupCode(code string) string {
	n := len(code)
	if n < 8 {
		return code
	}
	mid := n / 2
	return code[:mid] + "-" + code[mid:]
}

// CanonicalizeBackupCode strips formatting and case so user input matches
// the stored hash regardless of how the code was transcribed.
func CanonicalizeBackupCode(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// HashBackupCode binds the code to its owning account so identical codes
// issued to different accounts never collide in storage.
func HashBackupCode(accountID, canonicalCode string) string {
	data := make([]byte, 0, len(accountID)+1+len(canonicalCode))
	data = append(data, accountID...)
	data = append(data, 0)
	data = append(data, canonicalCode...)
	sum := sha256.Sum256(data)
	return hexEncode(sum[:])
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = digits[v>>4]
		out[i*2+1] = digits[v&0x0f]
	}
	return string(out)
}
