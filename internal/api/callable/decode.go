// Package callable maps loosely typed callable payloads onto ledger requests.
// Both transports (gRPC Struct messages and the HTTP callable protocol)
// deliver a map[string]any and share these decoders.
package callable

import (
	"encoding/json"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/service"
)

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

func DecodeAddCash(data map[string]any) (service.AddCashRequest, error) {
	var req service.AddCashRequest
	d := decoder{data: data}
	req.CompanyID = d.str("companyId")
	req.ProjectID = d.str("projectId")
	req.CropType = d.str("cropType")
	req.Amount = d.amount("amount")
	req.IdempotencyKey = d.str("idempotencyKey")
	return req, d.err
}

func DecodePayPicker(data map[string]any) (service.PayPickerRequest, error) {
	var req service.PayPickerRequest
	d := decoder{data: data}
	req.CompanyID = d.str("companyId")
	req.ProjectID = d.str("projectId")
	req.CropType = d.str("cropType")
	req.CollectionID = d.str("collectionId")
	req.PickerID = d.str("pickerId")
	req.PayoutAmount = d.amount("payoutAmount")
	req.WalletID = d.str("walletId")
	req.IdempotencyKey = d.str("idempotencyKey")
	return req, d.err
}

func DecodePayPickersBatch(data map[string]any) (service.PayPickersBatchRequest, error) {
	var req service.PayPickersBatchRequest
	d := decoder{data: data}
	req.CompanyID = d.str("companyId")
	req.ProjectID = d.str("projectId")
	req.CropType = d.str("cropType")
	req.CollectionID = d.str("collectionId")
	req.PickerIDs = d.strList("pickerIds")
	req.WalletID = d.str("walletId")
	req.IdempotencyKey = d.str("idempotencyKey")
	return req, d.err
}

func DecodeWalletSummary(data map[string]any) (service.WalletSummaryRequest, error) {
	var req service.WalletSummaryRequest
	d := decoder{data: data}
	req.CompanyID = d.str("companyId")
	req.ProjectID = d.str("projectId")
	req.CropType = d.str("cropType")
	req.WalletID = d.str("walletId")
	return req, d.err
}

// decoder keeps the first type error it meets. Absent and null fields decode
// to zero values and are left to request validation.
type decoder struct {
	data map[string]any
	err  error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = domain.InvalidArgument(format, args...)
	}
}

func (d *decoder) str(name string) string {
	v, ok := d.data[name]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail("%s must be a string", name)
		return ""
	}
	return s
}

func (d *decoder) strList(name string) []string {
	v, ok := d.data[name]
	if !ok || v == nil {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		d.fail("%s must be a list of strings", name)
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			d.fail("%s must be a list of strings", name)
			return nil
		}
		out = append(out, s)
	}
	return out
}

// amount reads an integer number of minor units. Numbers arrive as
// json.Number from HTTP and float64 from protobuf Struct values.
func (d *decoder) amount(name string) int64 {
	v, ok := d.data[name]
	if !ok || v == nil {
		return 0
	}
	var n decimal.Decimal
	switch x := v.(type) {
	case json.Number:
		parsed, err := decimal.NewFromString(x.String())
		if err != nil {
			d.fail("%s must be a number", name)
			return 0
		}
		n = parsed
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			d.fail("%s must be a finite number", name)
			return 0
		}
		n = decimal.NewFromFloat(x)
	case int64:
		n = decimal.NewFromInt(x)
	case int:
		n = decimal.NewFromInt(int64(x))
	default:
		d.fail("%s must be a number", name)
		return 0
	}
	if !n.IsInteger() {
		d.fail("%s must be a whole number of minor currency units", name)
		return 0
	}
	if n.GreaterThan(maxAmount) || n.LessThan(minAmount) {
		d.fail("%s is out of range", name)
		return 0
	}
	return n.IntPart()
}

// Success is the acknowledgement every mutating operation returns.
func Success() map[string]any {
	return map[string]any{"success": true}
}

// WalletSummary renders a wallet in the shape clients read from storage.
func WalletSummary(w *domain.WalletAccount) map[string]any {
	return map[string]any{
		"walletId":          w.ID,
		"companyId":         w.CompanyID,
		"projectId":         w.ProjectID,
		"cropType":          w.CropType,
		"cashReceivedTotal": w.CashReceivedTotal,
		"cashPaidOutTotal":  w.CashPaidOutTotal,
		"currentBalance":    w.CurrentBalance,
		"createdAt":         formatTime(w.CreatedAt),
		"createdBy":         w.CreatedBy,
		"lastUpdatedAt":     formatTime(w.LastUpdatedAt),
		"updatedBy":         w.UpdatedBy,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
