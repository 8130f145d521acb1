package recharge

import "sync"

// SelectionKind tags the active branch of a Selection.
type SelectionKind string

const (
	SelectionNone   SelectionKind = "none"
	SelectionPreset SelectionKind = "preset"
	SelectionCustom SelectionKind = "custom"
)

// Selection is the user's chosen amount: none, a catalog preset or a custom entry.
// Only one branch can be active at a time.
type Selection struct {
	kind   SelectionKind
	amount ChargeAmount
}

// NoSelection is the empty selection.
func NoSelection() Selection { return Selection{kind: SelectionNone} }

// PresetSelection selects a catalog amount.
func PresetSelection(amount ChargeAmount) Selection {
	return Selection{kind: SelectionPreset, amount: amount}
}

// CustomSelection selects a free-form amount.
func CustomSelection(amount ChargeAmount) Selection {
	return Selection{kind: SelectionCustom, amount: amount}
}

// Kind returns the active branch.
func (s Selection) Kind() SelectionKind {
	if s.kind == "" {
		return SelectionNone
	}
	return s.kind
}

// Amount returns the selected amount; ok is false for SelectionNone.
func (s Selection) Amount() (ChargeAmount, bool) {
	if s.Kind() == SelectionNone {
		return ChargeAmount{}, false
	}
	return s.amount, true
}

// Catalog is the ordered list of preset amounts.
type Catalog []ChargeAmount

// DefaultCatalog is the preset list offered when none is configured.
func DefaultCatalog() Catalog {
	return Catalog{
		ChargeAmountFromInt(100),
		ChargeAmountFromInt(200),
		ChargeAmountFromInt(500),
		ChargeAmountFromInt(1000),
		ChargeAmountFromInt(2000),
		ChargeAmountFromInt(5000),
	}
}

// Contains reports whether amount is a catalog value.
func (c Catalog) Contains(amount ChargeAmount) bool {
	for _, item := range c {
		if item.Equal(amount) {
			return true
		}
	}
	return false
}

// Selector holds the current selection for one customer.
type Selector struct {
	mu        sync.Mutex
	catalog   Catalog
	selection Selection
}

// NewSelector constructs a selector over catalog.
func NewSelector(catalog Catalog) *Selector {
	if len(catalog) == 0 {
		catalog = DefaultCatalog()
	}
	return &Selector{catalog: catalog, selection: NoSelection()}
}

// Catalog returns the preset amounts.
func (s *Selector) Catalog() Catalog {
	return append(Catalog(nil), s.catalog...)
}

// SelectPreset toggles a preset: selecting the active preset again clears it.
func (s *Selector) SelectPreset(amount ChargeAmount) (Selection, error) {
	if !s.catalog.Contains(amount) {
		return s.Selection(), ErrUnknownPreset
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection.Kind() == SelectionPreset && s.selection.amount.Equal(amount) {
		s.selection = NoSelection()
	} else {
		s.selection = PresetSelection(amount)
	}
	return s.selection, nil
}

// SelectCustom keeps the digits of rawText; no digits clears the selection.
// Bounds are checked later by the initiator so partially typed values are allowed.
func (s *Selector) SelectCustom(rawText string) Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount, ok := ParseDigits(rawText); ok {
		s.selection = CustomSelection(amount)
	} else {
		s.selection = NoSelection()
	}
	return s.selection
}

// CommitKeypad commits an entry-pad value only when it lies within bounds.
// Invalid input leaves the selection untouched.
func (s *Selector) CommitKeypad(rawText string) (Selection, error) {
	amount, ok := ParseDigits(rawText)
	if !ok {
		return s.Selection(), &ValidationError{Reason: ReasonEmpty}
	}
	if !amount.InRange() {
		return s.Selection(), &ValidationError{Reason: ReasonOutOfRange, Amount: amount.String()}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = CustomSelection(amount)
	return s.selection, nil
}

// Clear drops any selection.
func (s *Selector) Clear() {
	s.mu.Lock()
	s.selection = NoSelection()
	s.mu.Unlock()
}

// Selection returns the current selection.
func (s *Selector) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Current returns the selected amount, if any.
func (s *Selector) Current() (ChargeAmount, bool) {
	return s.Selection().Amount()
}
