package orders

import (
	"sort"
	"time"
)

// Urgency buckets unfulfilled orders by how soon they are required.
type Urgency string

const (
	UrgencyOverdue  Urgency = "overdue"
	UrgencyToday    Urgency = "today"
	UrgencyTomorrow Urgency = "tomorrow"
	UrgencyUpcoming Urgency = "upcoming"
)

var urgencyOrder = []Urgency{UrgencyOverdue, UrgencyToday, UrgencyTomorrow, UrgencyUpcoming}

// RequirementLine is one order inside a product group.
type RequirementLine struct {
	OrderID      int64     `json:"order_id"`
	ClientName   string    `json:"client_name"`
	Qty          int64     `json:"qty"`
	AssignedQty  int64     `json:"assigned_qty"`
	Outstanding  int64     `json:"outstanding"`
	RequiredDate time.Time `json:"required_date"`
	Status       Status    `json:"status"`
}

// ProductRequirement totals the outstanding quantity of one product.
type ProductRequirement struct {
	ProductID        int64             `json:"product_id"`
	ProductName      string            `json:"product_name"`
	TotalOutstanding int64             `json:"total_outstanding"`
	Orders           []RequirementLine `json:"orders"`
}

// RequirementBucket groups product requirements of one urgency.
type RequirementBucket struct {
	Urgency  Urgency              `json:"urgency"`
	Products []ProductRequirement `json:"products"`
}

// civilDay drops the clock and zone so dates compare as calendar days.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Classify buckets a required date relative to now in the business timezone.
// Required dates are calendar dates and are compared without conversion.
func Classify(required, now time.Time, loc *time.Location) Urgency {
	today := civilDay(now.In(loc))
	days := int(civilDay(required).Sub(today).Hours() / 24)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days == 0:
		return UrgencyToday
	case days == 1:
		return UrgencyTomorrow
	default:
		return UrgencyUpcoming
	}
}

// GroupRequirements buckets rows by urgency and then by product. Products inside a
// bucket are ordered by their most urgent order, then by name; orders by required
// date, then id. Empty buckets are omitted.
func GroupRequirements(rows []RequirementRow, now time.Time, loc *time.Location) []RequirementBucket {
	type productKey struct {
		urgency   Urgency
		productID int64
	}
	groups := make(map[productKey]*ProductRequirement)
	for _, row := range rows {
		outstanding := row.Outstanding()
		if outstanding == 0 {
			continue
		}
		key := productKey{urgency: Classify(row.RequiredDate, now, loc), productID: row.ProductID}
		group, ok := groups[key]
		if !ok {
			group = &ProductRequirement{ProductID: row.ProductID, ProductName: row.ProductName}
			groups[key] = group
		}
		group.TotalOutstanding += outstanding
		group.Orders = append(group.Orders, RequirementLine{
			OrderID:      row.OrderID,
			ClientName:   row.ClientName,
			Qty:          row.Qty,
			AssignedQty:  row.AssignedQty,
			Outstanding:  outstanding,
			RequiredDate: row.RequiredDate,
			Status:       row.Status,
		})
	}

	var buckets []RequirementBucket
	for _, urgency := range urgencyOrder {
		var products []ProductRequirement
		for key, group := range groups {
			if key.urgency != urgency {
				continue
			}
			sort.Slice(group.Orders, func(i, j int) bool {
				a, b := group.Orders[i], group.Orders[j]
				if !a.RequiredDate.Equal(b.RequiredDate) {
					return a.RequiredDate.Before(b.RequiredDate)
				}
				return a.OrderID < b.OrderID
			})
			products = append(products, *group)
		}
		if len(products) == 0 {
			continue
		}
		sort.Slice(products, func(i, j int) bool {
			a, b := products[i].Orders[0].RequiredDate, products[j].Orders[0].RequiredDate
			if !a.Equal(b) {
				return a.Before(b)
			}
			if products[i].ProductName != products[j].ProductName {
				return products[i].ProductName < products[j].ProductName
			}
			return products[i].ProductID < products[j].ProductID
		})
		buckets = append(buckets, RequirementBucket{Urgency: urgency, Products: products})
	}
	return buckets
}
