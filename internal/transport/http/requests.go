package httptransport

import (
	s "nightout/pkg/string"
	"nightout/pkg/validation"
)

// AmountRequest sets a currency field.
type AmountRequest struct {
	Value *float64 `json:"value" validate:"required"`
}

func (r *AmountRequest) Validate() error {
	return validation.Validate(r)
}

// CountRequest sets a counter field. Fractional values fail to decode.
type CountRequest struct {
	Value *int `json:"value" validate:"required"`
}

func (r *CountRequest) Validate() error {
	return validation.Validate(r)
}

// TallyRequest adds or removes drinks for one participant.
type TallyRequest struct {
	Participant string `json:"participant" validate:"required,notblank,max=64"`
	Drink       string `json:"drink" validate:"required,notblank"`
	Delta       int    `json:"delta" validate:"ne=0,gte=-100,lte=100"`
}

func (r *TallyRequest) Normalize() {
	s.TrimStrings(&r.Participant, &r.Drink)
}

func (r *TallyRequest) Validate() error {
	return validation.Validate(r)
}

// MenuRequest replaces the drink price list.
type MenuRequest struct {
	Prices map[string]float64 `json:"prices" validate:"required,min=1,max=20,dive,keys,notblank,max=32,endkeys,gte=0"`
}

func (r *MenuRequest) Validate() error {
	return validation.Validate(r)
}
