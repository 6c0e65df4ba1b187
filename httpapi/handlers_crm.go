package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexcrm/lexcrm/crm"
)

func (s *Server) mountCRM(api *gin.RouterGroup) {
	clients := api.Group("/clients")
	clients.GET("", s.requirePermission("clients:read"), s.handleListClients)
	clients.POST("", s.requirePermission("clients:write"), s.handleCreateClient)
	clients.GET("/:id", s.requirePermission("clients:read"), s.handleGetClient)
	clients.PUT("/:id", s.requirePermission("clients:write"), s.handleUpdateClient)
	clients.DELETE("/:id", s.requirePermission("clients:write"), s.handleDeleteClient)

	cases := api.Group("/cases")
	cases.GET("", s.requirePermission("cases:read"), s.handleListCases)
	cases.POST("", s.requirePermission("cases:write"), s.handleCreateCase)
	cases.GET("/:id", s.requirePermission("cases:read"), s.handleGetCase)
	cases.PUT("/:id", s.requirePermission("cases:write"), s.handleUpdateCase)
	cases.DELETE("/:id", s.requirePermission("cases:write"), s.handleDeleteCase)

	contracts := api.Group("/contracts")
	contracts.GET("", s.requirePermission("contracts:read"), s.handleListContracts)
	contracts.POST("", s.requirePermission("contracts:write"), s.handleCreateContract)
	contracts.GET("/:id", s.requirePermission("contracts:read"), s.handleGetContract)
	contracts.PUT("/:id", s.requirePermission("contracts:write"), s.handleUpdateContract)
	contracts.DELETE("/:id", s.requirePermission("contracts:write"), s.handleDeleteContract)

	payments := api.Group("/payments")
	payments.GET("", s.requirePermission("payments:read"), s.handleListPayments)
	payments.POST("", s.requirePermission("payments:write"), s.handleCreatePayment)
	payments.GET("/:id", s.requirePermission("payments:read"), s.handleGetPayment)
	payments.PUT("/:id", s.requirePermission("payments:write"), s.handleUpdatePayment)
	payments.DELETE("/:id", s.requirePermission("payments:write"), s.handleDeletePayment)
}

func (s *Server) handleListClients(c *gin.Context) {
	out, err := s.crm.ListClients(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateClient(c *gin.Context) {
	var client crm.Client
	if !bindJSON(c, &client) {
		return
	}
	if err := s.crm.CreateClient(c.Request.Context(), &client); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (s *Server) handleGetClient(c *gin.Context) {
	client, err := s.crm.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (s *Server) handleUpdateClient(c *gin.Context) {
	var client crm.Client
	if !bindJSON(c, &client) {
		return
	}
	client.ID = c.Param("id")
	if err := s.crm.UpdateClient(c.Request.Context(), &client); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (s *Server) handleDeleteClient(c *gin.Context) {
	if err := s.crm.DeleteClient(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListCases(c *gin.Context) {
	out, err := s.crm.ListCases(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateCase(c *gin.Context) {
	var kase crm.Case
	if !bindJSON(c, &kase) {
		return
	}
	if err := s.crm.CreateCase(c.Request.Context(), &kase); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, kase)
}

func (s *Server) handleGetCase(c *gin.Context) {
	kase, err := s.crm.GetCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, kase)
}

func (s *Server) handleUpdateCase(c *gin.Context) {
	var kase crm.Case
	if !bindJSON(c, &kase) {
		return
	}
	kase.ID = c.Param("id")
	if err := s.crm.UpdateCase(c.Request.Context(), &kase); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, kase)
}

func (s *Server) handleDeleteCase(c *gin.Context) {
	if err := s.crm.DeleteCase(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListContracts(c *gin.Context) {
	out, err := s.crm.ListContracts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateContract(c *gin.Context) {
	var contract crm.Contract
	if !bindJSON(c, &contract) {
		return
	}
	if err := s.crm.CreateContract(c.Request.Context(), &contract); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func (s *Server) handleGetContract(c *gin.Context) {
	contract, err := s.crm.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (s *Server) handleUpdateContract(c *gin.Context) {
	var contract crm.Contract
	if !bindJSON(c, &contract) {
		return
	}
	contract.ID = c.Param("id")
	if err := s.crm.UpdateContract(c.Request.Context(), &contract); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func (s *Server) handleDeleteContract(c *gin.Context) {
	if err := s.crm.DeleteContract(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListPayments(c *gin.Context) {
	out, err := s.crm.ListPayments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreatePayment(c *gin.Context) {
	var payment crm.Payment
	if !bindJSON(c, &payment) {
		return
	}
	if err := s.crm.CreatePayment(c.Request.Context(), &payment); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (s *Server) handleGetPayment(c *gin.Context) {
	payment, err := s.crm.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (s *Server) handleUpdatePayment(c *gin.Context) {
	var payment crm.Payment
	if !bindJSON(c, &payment) {
		return
	}
	payment.ID = c.Param("id")
	if err := s.crm.UpdatePayment(c.Request.Context(), &payment); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (s *Server) handleDeletePayment(c *gin.Context) {
	if err := s.crm.DeletePayment(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
