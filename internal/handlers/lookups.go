package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tronobserver/internal/models"
	"github.com/charlesng35/tronobserver/internal/tron"
	appErrors "github.com/charlesng35/tronobserver/pkg/errors"
	"github.com/charlesng35/tronobserver/pkg/response"
)

const (
	defaultRecordsPageSize   = 100
	defaultRecordsPageNumber = 1
)

// LookupService records ledger lookups and lists past ones.
type LookupService interface {
	RecordAccountInfo(ctx context.Context, address string) (*tron.AccountInfo, error)
	ListRecords(ctx context.Context, pageSize, pageNumber int) ([]models.LookupRecord, int64, error)
}

// LookupHandler serves the TRON account lookup endpoints.
type LookupHandler struct {
	svc LookupService
}

// NewLookupHandler constructs a lookup handler.
func NewLookupHandler(svc LookupService) (*LookupHandler, error) {
	if svc == nil {
		return nil, errors.New("lookup handler: service is required")
	}
	if err := registerValidators(); err != nil {
		return nil, err
	}
	return &LookupHandler{svc: svc}, nil
}

type accountInfoRequest struct {
	Address string `json:"address" validate:"required,tron_address"`
}

type lookupRecordDTO struct {
	ID          string         `json:"id"`
	Address     string         `json:"address"`
	AddressData map[string]any `json:"address_data"`
	CreatedAt   time.Time      `json:"created_at"`
}

func mapLookupRecord(record models.LookupRecord) lookupRecordDTO {
	data := map[string]any(record.Data)
	if data == nil {
		data = map[string]any{}
	}
	return lookupRecordDTO{
		ID:          record.ID,
		Address:     record.Address,
		AddressData: data,
		CreatedAt:   record.CreatedAt,
	}
}

// AccountInfo handles POST /api/tron/account_info.
func (h *LookupHandler) AccountInfo(c *gin.Context) {
	var req accountInfoRequest
	if !bindAndValidate(c, &req) {
		return
	}

	info, err := h.svc.RecordAccountInfo(requestContext(c), req.Address)
	if err != nil {
		respondLookupError(c, err)
		return
	}

	response.Success(c, http.StatusOK, info)
}

// Records handles GET /api/tron/records_info.
func (h *LookupHandler) Records(c *gin.Context) {
	pageSize, ok := parsePositiveIntQuery(c, "page_size", defaultRecordsPageSize)
	if !ok {
		return
	}
	pageNumber, ok := parsePositiveIntQuery(c, "page_number", defaultRecordsPageNumber)
	if !ok {
		return
	}

	records, total, err := h.svc.ListRecords(requestContext(c), pageSize, pageNumber)
	if err != nil {
		respondLookupError(c, err)
		return
	}

	items := make([]lookupRecordDTO, 0, len(records))
	for _, record := range records {
		items = append(items, mapLookupRecord(record))
	}

	response.SuccessWithMeta(c, http.StatusOK, items, response.NewPageMeta(pageNumber, pageSize, total))
}

func respondLookupError(c *gin.Context, err error) {
	var addrErr *tron.AddressError
	var clientErr *tron.ClientError

	switch {
	case errors.As(err, &addrErr):
		response.Error(c, appErrors.NewValidation(addrErr.Error()))
	case errors.As(err, &clientErr):
		response.Error(c, appErrors.NewUpstream(clientErr.StatusCode, clientErr.Detail).WithInternal(err))
	default:
		_ = c.Error(err)
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
	}
}
