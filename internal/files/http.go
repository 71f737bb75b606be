// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

package files

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tgvault/tgvault/internal/platform/apperr"
	"github.com/tgvault/tgvault/internal/platform/constants"
	"github.com/tgvault/tgvault/internal/platform/middleware"
	requestutil "github.com/tgvault/tgvault/internal/platform/request"
	"github.com/tgvault/tgvault/internal/platform/respond"
	"github.com/tgvault/tgvault/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements the file vault HTTP endpoints.
type Handler struct {
	fileService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{fileService: service}
}

// Routes returns a [chi.Router] configured with vault routes.
//
// # Endpoints
//
// Everything requires an authenticated session:
//   - POST   /            : Uploads a file (multipart).
//   - GET    /            : Lists the caller's files (paginated).
//   - GET    /stats       : Returns the caller's storage usage.
//   - GET    /{fileID}    : Streams the file content.
//   - DELETE /{fileID}    : Deletes the file.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequireAuth)

	router.Post("/", handler.upload)
	router.Get("/", handler.list)
	router.Get("/stats", handler.stats)
	router.Get("/{fileID}", handler.download)
	router.Delete("/{fileID}", handler.remove)

	return router
}

/*
Upload accepts one multipart file and stores it for the caller.

POST /api/files

Request:
  - multipart/form-data with a single "file" part

Response:
  - 201: StoredFile: Created metadata row
  - 400: ErrInvalidJSON: Missing or empty file part
  - 413: PayloadTooLarge: File over the size cap
*/
func (handler *Handler) upload(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Hard cap on the request body so an oversized upload dies during the
	// read instead of filling the disk. The slack covers multipart framing.
	request.Body = http.MaxBytesReader(writer, request.Body, constants.MaxUploadBytes+(1<<20))

	content, header, err := request.FormFile(FieldFile)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respond.Error(writer, request, apperr.PayloadTooLarge(
				fmt.Sprintf("File exceeds the %d MiB limit", constants.MaxUploadBytes>>20)))
			return
		}
		respond.Error(writer, request, apperr.ValidationError("A multipart 'file' field is required"))
		return
	}
	defer content.Close()

	file, err := handler.fileService.Upload(request.Context(), principal.UserID, UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     content,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, file)
}

/*
List returns the caller's files, newest first.

GET /api/files?page=1&limit=20

Response:
  - 200: []StoredFile with pagination metadata
*/
func (handler *Handler) list(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	params := pagination.FromRequest(request)

	result, meta, err := handler.fileService.List(request.Context(), principal.UserID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, result, meta)
}

/*
Download streams the file content to the caller.

GET /api/files/{fileID}

Response:
  - 200: Raw file bytes with Content-Type and Content-Disposition
  - 404: NotFound: Absent file, or a file owned by someone else
*/
func (handler *Handler) download(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	fileID, err := requestutil.Int64Param(request, FieldFileID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	file, content, err := handler.fileService.Download(request.Context(), fileID, principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer content.Close()

	writer.Header().Set("Content-Type", file.ContentType)
	writer.Header().Set("Content-Length", fmt.Sprintf("%d", file.SizeBytes))
	writer.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))

	if _, err := io.Copy(writer, content); err != nil {
		// Headers are already out; nothing useful can be sent anymore.
		return
	}
}

/*
Remove deletes the caller's file.

DELETE /api/files/{fileID}

Response:
  - 204: No Content: File removed
  - 404: NotFound: Absent file, or a file owned by someone else
*/
func (handler *Handler) remove(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	fileID, err := requestutil.Int64Param(request, FieldFileID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.fileService.Delete(request.Context(), fileID, principal.UserID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

/*
Stats returns the caller's storage usage.

GET /api/files/stats

Response:
  - 200: StorageStats: file_count, total_size, total_size_mb
*/
func (handler *Handler) stats(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stats, err := handler.fileService.Stats(request.Context(), principal.UserID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, stats)
}
