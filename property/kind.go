package property

import "property-binder/internal/common"

// Kind is the construction strategy of a Binding.
type Kind int

const (
	KindUnknown Kind = iota
	KindImmutable
	KindModifiable
)

func (k Kind) String() string {
	switch k {
	case KindImmutable:
		return "immutable"
	case KindModifiable:
		return "modifiable"
	default:
		return common.UnknownStr
	}
}
