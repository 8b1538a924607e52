package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/annoor-shop/internal/apperr"
	"github.com/MikeMC777/annoor-shop/internal/httpx"
	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/logger"
	"github.com/MikeMC777/annoor-shop/internal/product"
	"github.com/MikeMC777/annoor-shop/internal/upload"
)

// productsByCategoryHandler godoc
// @Summary Products of one category
// @Tags products
// @Produce json
// @Param category header string true "category"
// @Success 200 {object} httpx.Envelope{data=[]product.Product}
// @Failure 400 {object} httpx.Envelope
// @Router /product [get]
func productsByCategoryHandler(svc *product.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.ByCategory(c.Request.Context(), c.GetHeader("category"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "products found", items)
	}
}

// createProductHandler godoc
// @Summary Create a product
// @Tags products
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param uid header string true "caller uid"
// @Param form formData product.ProductForm true "product fields"
// @Param image formData file true "png or jpeg image"
// @Success 200 {object} httpx.Envelope{data=product.Product}
// @Failure 400 {object} httpx.Envelope
// @Router /product [post]
func createProductHandler(svc *product.Service, images *upload.Ingestor, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		fields, err := formFields(c)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		fh, err := c.FormFile("image")
		if err != nil {
			httpx.Fail(c, fmt.Errorf("%w: image is required", apperr.ErrInvalidInput))
			return
		}
		ref, err := images.Ingest(ctx, fh)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		fields.Image = &ref

		p, err := svc.Create(ctx, fields)
		if err != nil {
			discard(ctx, images, log, ref)
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "product created", p)
	}
}

// editProductHandler godoc
// @Summary Update a product
// @Description Only supplied fields change. A new image replaces and removes the old one.
// @Tags products
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param uid header string true "caller uid"
// @Param _id header string true "product id"
// @Param form formData product.ProductForm false "product fields"
// @Param image formData file false "png or jpeg image"
// @Success 200 {object} httpx.Envelope{data=product.Product}
// @Failure 400 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /edit-product [post]
func editProductHandler(svc *product.Service, images *upload.Ingestor, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		fields, err := formFields(c)
		if err != nil {
			httpx.Fail(c, err)
			return
		}

		var ref string
		if fh, err := c.FormFile("image"); err == nil {
			if ref, err = images.Ingest(ctx, fh); err != nil {
				httpx.Fail(c, err)
				return
			}
			fields.Image = &ref
		}

		p, previous, err := svc.Update(ctx, c.GetHeader("_id"), fields)
		if err != nil {
			discard(ctx, images, log, ref)
			httpx.Fail(c, err)
			return
		}
		if ref != "" && previous != ref {
			discard(ctx, images, log, previous)
		}
		httpx.OK(c, "product updated", p)
	}
}

// listProductsHandler godoc
// @Summary List products
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param uid header string true "caller uid"
// @Param page query int false "page, 15 per page"
// @Param search query string false "text search, wins over filter"
// @Param filter query string false "Stock out or Discounted"
// @Success 200 {object} httpx.Envelope{data=[]product.Product}
// @Router /all-products [get]
func listProductsHandler(svc *product.Service) gin.HandlerFunc {
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
		httpx.List(c, "products found", "productCount", items, total)
	}
}

// getProductHandler godoc
// @Summary One product
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param uid header string true "caller uid"
// @Param _id header string true "product id"
// @Success 200 {object} httpx.Envelope{data=product.Product}
// @Failure 404 {object} httpx.Envelope
// @Router /single-product [get]
func getProductHandler(svc *product.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.Get(c.Request.Context(), c.GetHeader("_id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		httpx.OK(c, "product found", p)
	}
}

// deleteProductHandler godoc
// @Summary Delete a product and its image
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param uid header string true "caller uid"
// @Param _id header string true "product id"
// @Success 200 {object} httpx.Envelope
// @Failure 404 {object} httpx.Envelope
// @Router /delete-product [delete]
func deleteProductHandler(svc *product.Service, images *upload.Ingestor, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		p, err := svc.Delete(ctx, c.GetHeader("_id"))
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		discard(ctx, images, log, p.Image)
		httpx.OK(c, "product deleted", nil)
	}
}

// discard removes an image that no record references any more. Failures only
// leave an orphaned file, so they are logged and not returned.
func discard(ctx context.Context, images *upload.Ingestor, log *logger.Logger, ref string) {
	if err := images.Discard(context.WithoutCancel(ctx), ref); err != nil {
		log.Warn("failed to remove image", "ref", ref, "error", err)
	}
}

// formFields reads the product fields present in a multipart form. Absent
// fields stay nil so an edit leaves them untouched.
func formFields(c *gin.Context) (product.Fields, error) {
	var f product.Fields
	text := func(key string) *string {
		v, ok := c.GetPostForm(key)
		if !ok {
			return nil
		}
		return &v
	}
	f.Name = text("name")
	f.Category = text("category")
	f.Subtext = text("subtext")
	f.Description = text("description")

	var errs []error
	if v := text("stock"); v != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*v))
		if err != nil {
			errs = append(errs, errors.New("stock must be an integer"))
		} else {
			f.Stock = &n
		}
	}
	money := func(key string) *decimal.Decimal {
		v := text(key)
		if v == nil || strings.TrimSpace(*v) == "" {
			return nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(*v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be a number", key))
			return nil
		}
		return &d
	}
	f.Price = money("price")
	f.Discount = money("discount")

	if len(errs) > 0 {
		return product.Fields{}, fmt.Errorf("%w: %w", apperr.ErrInvalidInput, errors.Join(errs...))
	}
	return f, nil
}
