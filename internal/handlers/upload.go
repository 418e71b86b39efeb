package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
)

// Multipart bodies may exceed the image limit by the size of the other
// form fields.
const maxUploadBody = services.MaxImageSize + 1<<20

type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
}

type MoodboardResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Item    *models.MoodboardItem `json:"item,omitempty"`
}

type GetMoodboardsResponse struct {
	Success bool                   `json:"success"`
	Items   []models.MoodboardItem `json:"items"`
	Total   int                    `json:"total"`
}

// readImage parses the "file" field of a multipart form. The caller must
// close the returned file.
func readImage(w http.ResponseWriter, r *http.Request) (services.ImageUpload, multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		writeFail(w, http.StatusBadRequest, "Failed to parse form")
		return services.ImageUpload{}, nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "No file provided")
		return services.ImageUpload{}, nil, false
	}
	img := services.ImageUpload{
		Reader:      file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	}
	return img, file, true
}

// GetMoodboards lists the shared board, newest first.
func (h *Handler) GetMoodboards(w http.ResponseWriter, r *http.Request) {
	items, err := h.Moodboards.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []models.MoodboardItem{}
	}
	writeJSON(w, http.StatusOK, GetMoodboardsResponse{Success: true, Items: items, Total: len(items)})
}

// CreateMoodboard uploads an image with its title and description form
// fields.
func (h *Handler) CreateMoodboard(w http.ResponseWriter, r *http.Request) {
	img, file, ok := readImage(w, r)
	if !ok {
		return
	}
	defer file.Close()

	item, err := h.Moodboards.Create(r.Context(), sessionOf(r), r.FormValue("title"), r.FormValue("description"), img)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, MoodboardResponse{Success: true, Message: "Image uploaded", Item: item})
}

func (h *Handler) DeleteMoodboard(w http.ResponseWriter, r *http.Request) {
	id, ok := requireParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.Moodboards.Delete(r.Context(), sessionOf(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "Image deleted")
}
