package pantry

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spoilsense/spoilsense/internal/parsing"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error body with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// validationStatus maps service errors to HTTP status codes.
func validationStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrEmptyName), errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidOverride):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleScanReceipt accepts a multipart receipt image and returns the
// parsed, reviewable lines
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	// 50MB to handle high-resolution phone photos
	maxFormSize := int64(50 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB. Please compress or resize your image."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file was selected. Please choose a file to upload.", http.StatusBadRequest)
		return
	}
	defer f.Close()

	if header.Size > maxFormSize {
		jsonError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeFromExt(header.Filename)
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	result, err := s.service.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Error scanning receipt", "filename", header.Filename, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// contentTypeFromExt guesses a MIME type from a filename extension.
// HEIC/HEIF must survive as-is so the conversion step can detect them.
func contentTypeFromExt(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}

// commitRequest is the review-step payload: the (possibly edited) lines
// plus the session they came from.
type commitRequest struct {
	SessionID string         `json:"session_id"`
	Lines     []parsing.Line `json:"lines"`
}

// handleCommitLines turns reviewed lines into pantry items
func (s *Server) handleCommitLines(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Lines) == 0 {
		jsonError(w, "No lines to commit", http.StatusBadRequest)
		return
	}

	items, err := s.service.CommitLines(req.SessionID, req.Lines)
	if err != nil {
		slog.Error("Error committing lines", "error", err)
		jsonError(w, "Error committing lines", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, items)
}

// handleAbandonSession discards an import session
func (s *Server) handleAbandonSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Session ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.AbandonSession(id); err != nil {
		corsError(w, "Session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addItemRequest is a manual pantry entry.
type addItemRequest struct {
	Name                   string  `json:"name"`
	Quantity               float64 `json:"quantity"`
	Unit                   string  `json:"unit"`
	PurchaseDate           string  `json:"purchase_date"`
	OverrideExpirationDate string  `json:"override_expiration_date"`
}

// handleAddItem creates a manually entered item
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	input := AddItemInput{
		Name:                   req.Name,
		Quantity:               req.Quantity,
		Unit:                   req.Unit,
		OverrideExpirationDate: req.OverrideExpirationDate,
	}
	if req.PurchaseDate != "" {
		d, err := time.Parse("2006-01-02", req.PurchaseDate)
		if err != nil {
			jsonError(w, "Invalid purchase date", http.StatusBadRequest)
			return
		}
		input.PurchaseDate = &d
	}

	item, err := s.service.AddItem(input)
	if err != nil {
		jsonError(w, err.Error(), validationStatus(err))
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// handleListItems returns all pantry items
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListItems()
	if err != nil {
		slog.Error("Error listing items", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleGetItem returns a single item
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Item ID required", http.StatusBadRequest)
		return
	}
	item, err := s.service.GetItem(id)
	if err != nil {
		corsError(w, "Item not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// updateItemRequest carries a partial edit. Pointer fields distinguish
// absent from empty; an empty override string clears the override.
type updateItemRequest struct {
	DisplayName            *string  `json:"display_name"`
	Quantity               *float64 `json:"quantity"`
	Unit                   *string  `json:"unit"`
	OverrideExpirationDate *string  `json:"override_expiration_date"`
}

// handleUpdateItem applies a partial edit
func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Item ID required", http.StatusBadRequest)
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	item, err := s.service.UpdateItem(id, UpdateItemInput{
		DisplayName:            req.DisplayName,
		Quantity:               req.Quantity,
		Unit:                   req.Unit,
		OverrideExpirationDate: req.OverrideExpirationDate,
	})
	if err != nil {
		jsonError(w, err.Error(), validationStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// handleDeleteItem deletes an item
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Item ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteItem(id); err != nil {
		corsError(w, "Item not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRankedItems returns the urgency-ordered projection of the pantry
func (s *Server) handleRankedItems(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	ranked, err := s.service.RankedItems(limit)
	if err != nil {
		slog.Error("Error ranking items", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

// handleShelfLives answers shelf-life lookups, merging external knowledge
// with the built-in table
func (s *Server) handleShelfLives(w http.ResponseWriter, r *http.Request) {
	var reqs []ShelfLifeRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.service.EnrichShelfLives(reqs)
	if err != nil {
		slog.Error("Error enriching shelf lives", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSuggestRecipes forwards the pantry and the top urgent ingredients
// to the recipe collaborator
func (s *Server) handleSuggestRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.service.SuggestRecipes()
	if err != nil {
		slog.Error("Error suggesting recipes", "error", err)
		jsonError(w, "Error suggesting recipes", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}
