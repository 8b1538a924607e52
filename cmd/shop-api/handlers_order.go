package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/auth"
	"github.com/MikeMC777/annoor-shop/internal/httpx"
	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/metrics"
	"github.com/MikeMC777/annoor-shop/internal/order"
)

// createOrderHandler godoc
// @Summary Place an order
// @Description Prices come from the catalog and stock is reserved; the caller owns the order.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param uid header string true "caller uid"
// @Param body body order.CreateOrderRequest true "order lines"
// @Success 200 {object} httpx.Envelope{data=order.Order}
// @Failure 400 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Failure 409 {object} httpx.Envelope
// @Router /order [post]
func createOrderHandler(svc *order.Service, m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
			return
		}
		o, err := svc.Create(c.Request.Context(), auth.UID(c), req)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		m.RecordOrderCreated()
		httpx.OK(c, "order placed", o)
	}
}

// myOrdersHandler godoc
// @Summary Caller's orders
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param uid header string true "caller uid"
// @Param page query int false "page, 15 per page"
// @Param search query string false "text search, wins over filter"
// @Param filter query string false "Pending, Paid, Shipped or Canceled"
// @Success 200 {object} httpx.Envelope{data=[]order.Order}
// @Router /my-orders [get]
func myOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := listing.ParseParams(listingParams(c))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		items, total, err := svc.ListOwned(c.Request.Context(), auth.UID(c), p)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.List(c, "orders found", "orderCount", items, total)
	}
}

// getMyOrderHandler godoc
// @Summary One of the caller's orders
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param uid header string true "caller uid"
// @Param id header int true "order id"
// @Success 200 {object} httpx.Envelope{data=order.Order}
// @Failure 404 {object} httpx.Envelope
// @Router /order [get]
func getMyOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := orderID(c.GetHeader("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		o, err := svc.GetOwned(c.Request.Context(), auth.UID(c), id)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "order found", o)
	}
}

// payOrderHandler godoc
// @Summary Record payment on a pending order
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param uid header string true "caller uid"
// @Param body body order.PaymentRequest true "order id and payment fields"
// @Success 200 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Failure 409 {object} httpx.Envelope
// @Router /order-payment [post]
func payOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
			return
		}
		if req.ID <= 0 {
			httpx.Fail(c, fmt.Errorf("%w: id must be a positive integer", apperr.ErrInvalidInput))
			return
		}
		if err := svc.Pay(c.Request.Context(), auth.UID(c), req.ID, req.Payment); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "payment recorded", nil)
	}
}

// listOrdersHandler godoc
// @Summary List every order
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param uid header string true "caller uid"
// @Param page query int false "page, 15 per page"
// @Param search query string false "text search, wins over filter"
// @Param filter query string false "Pending, Paid, Shipped or Canceled"
// @Success 200 {object} httpx.Envelope{data=[]order.Order}
// @Router /all-orders [get]
func listOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := listing.ParseParams(listingParams(c))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		items, total, err := svc.List(c.Request.Context(), p)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.List(c, "orders found", "orderCount", items, total)
	}
}

// getOrderHandler godoc
// @Summary Any order by id
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param uid header string true "caller uid"
// @Param id header int true "order id"
// @Success 200 {object} httpx.Envelope{data=order.Order}
// @Failure 404 {object} httpx.Envelope
// @Router /single-order [get]
func getOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := orderID(c.GetHeader("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		o, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "order found", o)
	}
}

// setOrderStatusHandler godoc
// @Summary Change an order's status
// @Description Status is free-form; canceled returns the items to stock once.
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param uid header string true "caller uid"
// @Param body body order.StatusRequest true "order id and status"
// @Success 200 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Failure 409 {object} httpx.Envelope
// @Router /order-status [put]
func setOrderStatusHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req order.StatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.Fail(c, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err))
			return
		}
		if req.ID <= 0 {
			httpx.Fail(c, fmt.Errorf("%w: id must be a positive integer", apperr.ErrInvalidInput))
			return
		}
		if err := svc.SetStatus(c.Request.Context(), req.ID, req.Status); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "order status updated", nil)
	}
}

// deleteOrderHandler godoc
// @Summary Delete an order
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param uid header string true "caller uid"
// @Param id header int true "order id"
// @Success 200 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /delete-order [delete]
func deleteOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := orderID(c.GetHeader("id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if err := svc.Delete(c.Request.Context(), id); err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "order deleted", nil)
	}
}

func orderID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", apperr.ErrInvalidInput)
	}
	return id, nil
}
