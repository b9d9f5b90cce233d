package handler

import (
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"quotegen/internal/service"
)

func archiveDisabled(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusServiceUnavailable, "ARCHIVE_DISABLED", "document archive is not configured")
}

func isNotFound(err error) bool {
	return errors.Is(err, service.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}

// ListDocuments lists archived documents with limit & offset and an optional number filter.
func ListDocuments(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if svc == nil {
			return archiveDisabled(c)
		}
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset, c.Query("number"))
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetDocument returns the metadata of one archived document.
func GetDocument(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if svc == nil {
			return archiveDisabled(c)
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if isNotFound(err) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(doc)
	}
}

// DownloadDocument streams the stored file as an attachment.
func DownloadDocument(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if svc == nil {
			return archiveDisabled(c)
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, doc, err := svc.Open(c.UserContext(), id)
		if err != nil {
			if isNotFound(err) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		c.Set(fiber.HeaderContentType, doc.ContentType)
		c.Set(fiber.HeaderContentDisposition, contentDisposition(doc.Filename))
		// fasthttp closes rc once the body is written.
		return c.SendStream(rc, int(doc.Size))
	}
}

// DocumentLink returns a presigned download URL. ?expires takes a Go duration
// (15m, 2h) and defaults to one hour.
func DocumentLink(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if svc == nil {
			return archiveDisabled(c)
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		expiry, err := time.ParseDuration(c.Query("expires", "1h"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY", "expires must be a duration like 15m or 2h")
		}
		link, err := svc.Link(c.UserContext(), id, expiry)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidExpiry):
				return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY", err.Error())
			case isNotFound(err):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(link)
	}
}

// DeleteDocument removes a document from storage and the journal.
func DeleteDocument(svc service.ArchiveService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if svc == nil {
			return archiveDisabled(c)
		}
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			if isNotFound(err) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
