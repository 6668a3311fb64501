package availability

import (
	"fmt"
	"time"

	"github.com/fjod/go_kitchen/internal/domain"
)

const notAvailable = "Not available"

func unavailable() domain.Verdict {
	return domain.Verdict{
		Status:  domain.StatusUnavailable,
		Message: notAvailable,
	}
}

// Evaluate decides whether dish can be ordered on the weekday of asOf.
// It never fails: missing or unknown data yields the unavailable verdict.
func Evaluate(dish domain.Dish, asOf time.Time) domain.Verdict {
	today := domain.WeekdayOf(asOf)
	a := dish.Availability

	if len(a.Days) == 0 {
		return unavailable()
	}

	switch a.Type {
	case domain.AvailabilityDaily:
		return evaluateDaily(a, today)
	case domain.AvailabilityWeeklySpecial:
		return evaluateWeeklySpecial(dish, today)
	case domain.AvailabilityPreorderOnly:
		return evaluatePreorderOnly(a, today)
	default:
		return unavailable()
	}
}

func evaluateDaily(a domain.Availability, today domain.Weekday) domain.Verdict {
	if a.AvailableOn(today) {
		return domain.Verdict{
			IsAvailableToday: true,
			CanOrder:         true,
			Status:           domain.StatusAvailable,
			Message:          "Available today",
		}
	}
	if today == domain.Sunday {
		return domain.Verdict{Status: domain.StatusUnavailable, Message: "Available Monday to Saturday"}
	}
	return domain.Verdict{Status: domain.StatusUnavailable, Message: "Available on weekdays"}
}

// Weekly specials are delivered on Sunday and preordered on Saturday,
// whatever days the dish itself lists.
func evaluateWeeklySpecial(dish domain.Dish, today domain.Weekday) domain.Verdict {
	a := dish.Availability
	if a.AvailableOn(today) && today == domain.Sunday {
		return domain.Verdict{
			IsAvailableToday: true,
			CanOrder:         true,
			Status:           domain.StatusAvailable,
			Message:          "Available today (Sunday special)",
		}
	}
	if today == a.PreorderOpensOn && today == domain.Saturday {
		return domain.Verdict{
			IsPreorderOpen: true,
			CanOrder:       true,
			Status:         domain.StatusPreorder,
			Message:        "Preorder for tomorrow (Sunday)",
		}
	}
	price := dish.PriceWithSurcharge()
	return domain.Verdict{
		CanOrder:           true,
		Status:             domain.StatusSpecialOrder,
		Message:            fmt.Sprintf("Special order available (+₹%s)", a.SpecialOrderSurcharge.String()),
		PriceWithSurcharge: &price,
	}
}

func evaluatePreorderOnly(a domain.Availability, today domain.Weekday) domain.Verdict {
	if !a.RequiresPreorder || a.PreorderOpensOn == "" {
		return unavailable()
	}
	message := fmt.Sprintf("Preorder opens on %s", a.PreorderOpensOn)
	if today == a.PreorderOpensOn {
		return domain.Verdict{
			IsPreorderOpen: true,
			CanOrder:       true,
			Status:         domain.StatusPreorder,
			Message:        message,
		}
	}
	return domain.Verdict{Status: domain.StatusUnavailable, Message: message}
}

// Engine evaluates dishes against the current time in the business location.
type Engine struct {
	now func() time.Time
	loc *time.Location
}

func NewEngine(loc *time.Location, now func() time.Time) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now, loc: loc}
}

func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

func (e *Engine) Evaluate(dish domain.Dish) domain.Verdict {
	return Evaluate(dish, e.Now())
}
