package dto

import (
	"fmt"
	"strconv"

	"studio-service/internal/core/domain"
	"studio-service/internal/core/ports/output"
	"studio-service/internal/core/services"
)

const tableMissingMessage = "The generation_logs table does not exist. Please create it using the SQL provided in the documentation."

// ListLogsQuery is the query string of GET /logs.
type ListLogsQuery struct {
	RequestID   string `form:"requestId"`
	Status      string `form:"status"`
	UserID      string `form:"userId"`
	GalleryOnly string `form:"galleryOnly"`
	Limit       string `form:"limit"`
	Offset      string `form:"offset"`
}

// Filter converts the query into a repository filter.
func (q *ListLogsQuery) Filter() (ports.GenerationLogFilter, error) {
	f := ports.GenerationLogFilter{
		RequestID:   q.RequestID,
		Status:      domain.LogStatus(q.Status),
		UserID:      q.UserID,
		GalleryOnly: q.GalleryOnly == "true",
	}
	var err error
	if q.Limit != "" {
		if f.Limit, err = strconv.Atoi(q.Limit); err != nil {
			return f, fmt.Errorf("limit must be an integer")
		}
	}
	if q.Offset != "" {
		if f.Offset, err = strconv.Atoi(q.Offset); err != nil {
			return f, fmt.Errorf("offset must be an integer")
		}
	}
	return f, nil
}

type ListLogsResponse struct {
	Logs        []*domain.GenerationLog            `json:"logs"`
	GroupedLogs map[string][]*domain.GenerationLog `json:"groupedLogs"`
	Count       int                                `json:"count"`
	Limit       int                                `json:"limit"`
	Offset      int                                `json:"offset"`
	TableExists bool                               `json:"tableExists"`
	Message     string                             `json:"message,omitempty"`
}

func ToListLogsResponse(p *services.GenerationLogPage) ListLogsResponse {
	resp := ListLogsResponse{
		Logs:        p.Logs,
		GroupedLogs: p.Grouped(),
		Count:       p.Total,
		Limit:       p.Limit,
		Offset:      p.Offset,
		TableExists: p.TableExists,
	}
	if !p.TableExists {
		resp.Message = tableMissingMessage
	}
	return resp
}

// SaveToGalleryRequest marks a generated image as saved.
type SaveToGalleryRequest struct {
	RequestID string `json:"requestId"`
	ImageURL  string `json:"imageUrl"`
}

type SaveToGalleryResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
	ImageURL  string `json:"imageUrl"`
}
