package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/simplepos/pos-service/internal/catalog"
)

type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=3"`
}

type CreateProductRequest struct {
	Name       string `json:"name" validate:"required,min=3,max=100"`
	Price      int64  `json:"price" validate:"required,min=1000"`
	CategoryID string `json:"category_id" validate:"required,uuid4"`
	ImageURL   string `json:"image_url" validate:"omitempty,url"`
}

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/categories", h.handleGetCategories)
	router.Post("/categories", h.handleCreateCategory)
	router.Put("/categories/{id}", h.handleUpdateCategory)
	router.Delete("/categories/{id}", h.handleDeleteCategory)

	router.Get("/products", h.handleGetProducts)
	router.Post("/products", h.handleCreateProduct)
	router.Put("/products/{id}", h.handleUpdateProduct)
	router.Delete("/products/{id}", h.handleDeleteProduct)
	router.Post("/products/image-upload-url", h.handleCreateImageUploadURL)
}

func (h *CatalogHandler) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.GetCategories(r.Context())
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to fetch categories")
		return
	}

	respondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeCategoryRequest(w, r, h.validate)
	if !ok {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), payload.Name)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	payload, ok := decodeCategoryRequest(w, r, h.validate)
	if !ok {
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), id, payload.Name)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleGetProducts(w http.ResponseWriter, r *http.Request) {
	categoryID := uuid.Nil

	if raw := r.URL.Query().Get("category_id"); raw != "" && raw != "all" {
		parsed, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid category_id filter")
			return
		}
		categoryID = parsed
	}

	products, err := h.service.GetProducts(r.Context(), categoryID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to fetch products")
		return
	}

	respondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeProductRequest(w, r, h.validate)
	if !ok {
		return
	}

	categoryID, _ := uuid.FromString(payload.CategoryID)
	product, err := h.service.CreateProduct(r.Context(), &catalog.Product{
		Name:       payload.Name,
		Price:      payload.Price,
		CategoryID: categoryID,
		ImageURL:   payload.ImageURL,
	})
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	payload, ok := decodeProductRequest(w, r, h.validate)
	if !ok {
		return
	}

	categoryID, _ := uuid.FromString(payload.CategoryID)
	product, err := h.service.UpdateProduct(r.Context(), &catalog.Product{
		ID:         id,
		Name:       payload.Name,
		Price:      payload.Price,
		CategoryID: categoryID,
		ImageURL:   payload.ImageURL,
	})
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) handleCreateImageUploadURL(w http.ResponseWriter, r *http.Request) {
	upload, err := h.service.CreateImageUploadURL(r.Context())
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "failed to create upload URL")
		return
	}

	respondWithJSON(w, http.StatusCreated, upload)
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func decodeCategoryRequest(w http.ResponseWriter, r *http.Request, validate *validator.Validate) (*CategoryRequest, bool) {
	var payload CategoryRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&payload); err != nil {
		log.Error().Err(err).Msg("Failed to decode category request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload %v", err))
		return nil, false
	}

	if err := validate.Struct(payload); err != nil {
		respondWithValidationErrors(w, err)
		return nil, false
	}

	return &payload, true
}

func decodeProductRequest(w http.ResponseWriter, r *http.Request, validate *validator.Validate) (*CreateProductRequest, bool) {
	var payload CreateProductRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&payload); err != nil {
		log.Error().Err(err).Msg("Failed to decode product request body")
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request payload %v", err))
		return nil, false
	}

	if err := validate.Struct(payload); err != nil {
		respondWithValidationErrors(w, err)
		return nil, false
	}

	return &payload, true
}
