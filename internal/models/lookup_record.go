package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
)

// TronAddressLength is the length of a base58check encoded TRON address.
const TronAddressLength = 34

// LookupRecord is a single persisted address lookup. Records are written once and never mutated.
type LookupRecord struct {
	BaseModel

	Address string            `gorm:"type:varchar(34);not null;index" json:"address"`
	Data    datatypes.JSONMap `gorm:"type:json" json:"data"`
}

// TableName pins the table name independently of the struct name.
func (LookupRecord) TableName() string {
	return "lookup_records"
}

// NewLookupRecord builds an unsaved record. The payload is normalised through JSON so the
// in-memory value matches what any later read from the cache or the database yields.
func NewLookupRecord(address string, data map[string]any) (*LookupRecord, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("lookup record: address is required")
	}

	record := &LookupRecord{Address: address, Data: datatypes.JSONMap{}}
	if len(data) == 0 {
		return record, nil
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("lookup record: encode data: %w", err)
	}

	var normalised datatypes.JSONMap
	if err := json.Unmarshal(encoded, &normalised); err != nil {
		return nil, fmt.Errorf("lookup record: decode data: %w", err)
	}
	record.Data = normalised
	return record, nil
}
