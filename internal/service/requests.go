package service

type AddCashRequest struct {
	CompanyID      string `json:"companyId" validate:"required"`
	ProjectID      string `json:"projectId" validate:"required"`
	CropType       string `json:"cropType" validate:"required"`
	Amount         int64  `json:"amount" validate:"gt=0"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,max=128"`
}

type PayPickerRequest struct {
	CompanyID      string `json:"companyId" validate:"required"`
	ProjectID      string `json:"projectId" validate:"required"`
	CropType       string `json:"cropType" validate:"required"`
	CollectionID   string `json:"collectionId" validate:"required"`
	PickerID       string `json:"pickerId"`
	PayoutAmount   int64  `json:"payoutAmount" validate:"gt=0"`
	WalletID       string `json:"walletId"`
	IdempotencyKey string `json:"idempotencyKey" validate:"omitempty,max=128"`
}

type PayPickersBatchRequest struct {
	CompanyID      string   `json:"companyId" validate:"required"`
	ProjectID      string   `json:"projectId" validate:"required"`
	CropType       string   `json:"cropType" validate:"required"`
	CollectionID   string   `json:"collectionId" validate:"required"`
	PickerIDs      []string `json:"pickerIds" validate:"required,min=1,dive,required"`
	WalletID       string   `json:"walletId"`
	IdempotencyKey string   `json:"idempotencyKey" validate:"omitempty,max=128"`
}

type WalletSummaryRequest struct {
	CompanyID string `json:"companyId"`
	ProjectID string `json:"projectId"`
	CropType  string `json:"cropType"`
	WalletID  string `json:"walletId"`
}
