package availability

import "github.com/fjod/go_kitchen/internal/domain"

type Variant string

const (
	VariantSuccess Variant = "success"
	VariantInfo    Variant = "info"
	VariantWarning Variant = "warning"
	VariantMuted   Variant = "muted"
)

type Badge struct {
	Variant Variant `json:"variant"`
	Icon    string  `json:"icon"`
}

// BadgeFor maps a verdict status to its display badge. Unknown statuses
// are shown like unavailable ones.
func BadgeFor(status domain.Status) Badge {
	switch status {
	case domain.StatusAvailable:
		return Badge{Variant: VariantSuccess, Icon: "✅"}
	case domain.StatusPreorder:
		return Badge{Variant: VariantInfo, Icon: "📅"}
	case domain.StatusSpecialOrder:
		return Badge{Variant: VariantWarning, Icon: "⭐"}
	default:
		return Badge{Variant: VariantMuted, Icon: "❌"}
	}
}
