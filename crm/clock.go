package crm

import "time"

var nowFunc = time.Now
