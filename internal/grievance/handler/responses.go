package handler

import (
	"time"

	"civicchain/internal/grievance/models"
)

type GrievanceResponse struct {
	GrievanceID     string                 `json:"grievance_id"`
	OwnerRef        string                 `json:"owner_ref,omitempty"`
	Reporter        models.Reporter        `json:"reporter"`
	Description     string                 `json:"description"`
	Department      string                 `json:"department"`
	Region          string                 `json:"region"`
	Category        string                 `json:"category,omitempty"`
	Priority        string                 `json:"priority"`
	Status          string                 `json:"status"`
	Timeline        []models.TimelineEntry `json:"timeline"`
	TransactionHash string                 `json:"transaction_hash,omitempty"`
	BlockNumber     *int64                 `json:"block_number,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type ListResponse struct {
	Items []*GrievanceResponse `json:"items"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

type BulkFailureResponse struct {
	GrievanceID string `json:"grievance_id"`
	Reason      string `json:"reason"`
}

type BulkResponse struct {
	Updated []string              `json:"updated"`
	Failed  []BulkFailureResponse `json:"failed"`
}

type AggregateResponse struct {
	TotalGrievances   int            `json:"total_grievances"`
	TotalAccounts     int            `json:"total_accounts"`
	TotalByStatus     map[string]int `json:"total_by_status"`
	TotalByRegion     map[string]int `json:"total_by_region"`
	TotalByDepartment map[string]int `json:"total_by_department"`
}

func toGrievanceResponse(g *models.Grievance) *GrievanceResponse {
	return &GrievanceResponse{
		GrievanceID:     g.ID.String(),
		OwnerRef:        g.OwnerRef,
		Reporter:        g.Reporter,
		Description:     g.Description,
		Department:      g.Department,
		Region:          g.Region,
		Category:        g.Category,
		Priority:        string(g.Priority),
		Status:          string(g.Status),
		Timeline:        g.Timeline,
		TransactionHash: g.TransactionHash,
		BlockNumber:     g.BlockNumber,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
}

func toListResponse(page *models.Page) *ListResponse {
	items := make([]*GrievanceResponse, 0, len(page.Items))
	for _, g := range page.Items {
		items = append(items, toGrievanceResponse(g))
	}
	return &ListResponse{Items: items, Total: page.Total, Page: page.Page, Limit: page.Limit}
}

func toBulkResponse(result *models.BulkResult) *BulkResponse {
	resp := &BulkResponse{
		Updated: make([]string, 0, len(result.Updated)),
		Failed:  make([]BulkFailureResponse, 0, len(result.Failed)),
	}
	for _, gid := range result.Updated {
		resp.Updated = append(resp.Updated, gid.String())
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, BulkFailureResponse{GrievanceID: f.ID.String(), Reason: f.Reason})
	}
	return resp
}

func toAggregateResponse(a *models.Aggregate) *AggregateResponse {
	return &AggregateResponse{
		TotalGrievances:   a.Total,
		TotalAccounts:     a.TotalAccounts,
		TotalByStatus:     a.ByStatus,
		TotalByRegion:     a.ByRegion,
		TotalByDepartment: a.ByDepartment,
	}
}
