package orders

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

type Status string

const (
	Pending    Status = "Pending"
	Fulfilling Status = "Fulfilling"
	Shipped    Status = "Shipped"
	Cancelled  Status = "Cancelled"
)

// Statuses lists every status in declaration order.
var Statuses = []Status{Pending, Fulfilling, Shipped, Cancelled}

func (s Status) Valid() bool {
	for _, status := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return errors.Wrap(err, "status must be a string")
	}
	status := Status(value)
	if !status.Valid() {
		return errors.Errorf("unknown status '%s'", value)
	}
	*s = status
	return nil
}

type Order struct {
	ID     int       `json:"id"`
	Status Status    `json:"status"`
	Date   time.Time `json:"date"`
}
