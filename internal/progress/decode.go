package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// flexInt accepts a JSON number, a numeric string ("12", "12.00") or null.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	f, err := parseFlexNumber(data)
	if err != nil {
		return err
	}
	if f != math.Trunc(f) {
		return fmt.Errorf("quantity %s is not a whole number", data)
	}
	*n = flexInt(f)
	return nil
}

// flexFloat accepts a JSON number, a decimal string ("1500.00") or null.
type flexFloat float64

func (n *flexFloat) UnmarshalJSON(data []byte) error {
	f, err := parseFlexNumber(data)
	if err != nil {
		return err
	}
	*n = flexFloat(f)
	return nil
}

func parseFlexNumber(data []byte) (float64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return 0, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return 0, nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %s", data)
	}
	return f, nil
}

func (s *OrderItemSize) UnmarshalJSON(data []byte) error {
	type plain OrderItemSize
	aux := struct {
		*plain
		Amount flexInt `json:"oisAmount"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Amount = int(aux.Amount)
	return nil
}

func (m *ProgressMain) UnmarshalJSON(data []byte) error {
	type plain ProgressMain
	aux := struct {
		*plain
		AmountTotal     flexInt `json:"opmAmountTotal"`
		AmountTotalDone flexInt `json:"opmAmountTotalDone"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	m.AmountTotal = int(aux.AmountTotal)
	m.AmountTotalDone = int(aux.AmountTotalDone)
	return nil
}

func (p *ProgressItem) UnmarshalJSON(data []byte) error {
	type plain ProgressItem
	aux := struct {
		*plain
		Amount     flexInt   `json:"opAmount"`
		AmountDone flexInt   `json:"opAmountDone"`
		Fee        flexFloat `json:"opFee"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Amount = int(aux.Amount)
	p.AmountDone = int(aux.AmountDone)
	p.Fee = float64(aux.Fee)
	return nil
}

func (d *ProgressDetail) UnmarshalJSON(data []byte) error {
	type plain ProgressDetail
	aux := struct {
		*plain
		Amount flexInt `json:"opdAmount"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	d.Amount = int(aux.Amount)
	return nil
}
