package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"pizza-service/internal/service"

	"github.com/gin-gonic/gin"
)

// listPizzas returns the catalog
func (h *Handler) listPizzas(c *gin.Context) {
	pizzas, err := h.pizzaService.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pizzas)
}

// getPizza returns one pizza
func (h *Handler) getPizza(c *gin.Context) {
	id, ok := parseID(c, "pizza")
	if !ok {
		return
	}

	pizza, err := h.pizzaService.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pizza)
}

// createPizza accepts either plain JSON or a multipart form with a "pizza"
// JSON part and an optional "image" file.
func (h *Handler) createPizza(c *gin.Context) {
	in, image, closeImage, err := bindPizza(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	defer closeImage()

	pizza, err := h.pizzaService.Create(c.Request.Context(), in, image)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Header("Location", "/api/pizzas/"+itoa(pizza.ID))
	c.JSON(http.StatusCreated, pizza)
}

// updatePizza replaces a pizza, optionally with a new image
func (h *Handler) updatePizza(c *gin.Context) {
	id, ok := parseID(c, "pizza")
	if !ok {
		return
	}

	in, image, closeImage, err := bindPizza(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	defer closeImage()

	if err := h.pizzaService.Update(c.Request.Context(), id, in, image); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// deletePizza removes a pizza
func (h *Handler) deletePizza(c *gin.Context) {
	id, ok := parseID(c, "pizza")
	if !ok {
		return
	}

	if err := h.pizzaService.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindPizza(c *gin.Context) (*service.PizzaInput, *service.Image, func(), error) {
	noop := func() {}
	var in service.PizzaInput

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&in); err != nil {
			return nil, nil, noop, err
		}
		return &in, nil, noop, nil
	}

	raw := c.PostForm("pizza")
	if raw == "" {
		return nil, nil, noop, errors.New(`multipart form requires a "pizza" field`)
	}
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, nil, noop, err
	}

	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return &in, nil, noop, nil
	}
	if err != nil {
		return nil, nil, noop, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, nil, noop, err
	}
	return &in, &service.Image{Filename: header.Filename, Content: f}, func() { f.Close() }, nil
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
