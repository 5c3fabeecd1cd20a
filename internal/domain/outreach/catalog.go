// internal/domain/outreach/catalog.go
package outreach

import (
	"fmt"
	"sort"
)

// MessageCode uniquely identifies one message variant, e.g. H12Rhw04.
type MessageCode string

// Slot is the position of a code inside its family.
type Slot string

const (
	SlotR00   Slot = "R00"
	SlotR01   Slot = "R01"
	SlotR02   Slot = "R02"
	SlotR03   Slot = "R03"
	SlotR04   Slot = "R04"
	SlotR05   Slot = "R05"
	SlotR06   Slot = "R06"
	SlotR07   Slot = "R07"
	SlotStuck Slot = "R99"
	SlotX00   Slot = "X00"
	SlotX01   Slot = "X01"
	SlotX02   Slot = "X02"
	SlotX03   Slot = "X03"

	SlotLastTryNotTried Slot = "L00"
	SlotLastTryTried    Slot = "L01"
	SlotBlocked         Slot = "W00"
)

func RegularSlot(n int) Slot  { return Slot(fmt.Sprintf("R%02d", n)) }
func ExtendedSlot(n int) Slot { return Slot(fmt.Sprintf("X%02d", n)) }

var (
	ladderSlots = []Slot{SlotR00, SlotR01, SlotR02, SlotR03, SlotR04, SlotR05, SlotR06, SlotR07,
		SlotStuck, SlotX00, SlotX01, SlotX02, SlotX03}
	usersSlots = []Slot{SlotR00, SlotR01, SlotR02, SlotR03, SlotR04, SlotR05, SlotR06, SlotR07,
		SlotX00, SlotX01, SlotX02, SlotX03}
	startSlots = []Slot{SlotR00, SlotR01, SlotR02, SlotR03}
	finalSlots = []Slot{SlotR00, SlotR01, SlotR02, SlotR04, SlotR05, SlotR06,
		SlotX00, SlotX01, SlotX02, SlotLastTryNotTried, SlotLastTryTried}
	blockedSlots = []Slot{SlotBlocked}
)

// Slots returns the slots defined for the kind's family.
func (k MilestoneKind) Slots() []Slot {
	switch k.Family {
	case FamilySkillsReview, FamilyHomework, FamilyReviewExam, FamilyUnitExam:
		return ladderSlots
	case FamilyUsersExam:
		return usersSlots
	case FamilyStart:
		return startSlots
	case FamilyFinal:
		return finalSlots
	case FamilyBlocked:
		return blockedSlots
	}
	return nil
}

// Code builds the message code for a slot of this kind. It does not check that
// the slot exists in the family; the catalog does.
func (k MilestoneKind) Code(s Slot) MessageCode {
	series, num := string(s[:1]), string(s[1:])
	switch k.Family {
	case FamilySkillsReview:
		return MessageCode("SKL" + series + "sr" + num)
	case FamilyUsersExam:
		return MessageCode("USR" + series + "us" + num)
	case FamilyStart:
		return MessageCode("STRTst" + num)
	case FamilyHomework:
		return MessageCode(fmt.Sprintf("H%d%d%shw%s", k.Unit, k.Objective, series, num))
	case FamilyReviewExam:
		return MessageCode(fmt.Sprintf("RE%d%sre%s", k.Unit, series, num))
	case FamilyUnitExam:
		return MessageCode(fmt.Sprintf("UE%d%sue%s", k.Unit, series, num))
	case FamilyFinal:
		if series == "L" {
			return MessageCode("LASTfe" + num)
		}
		return MessageCode("FIN" + series + "fe" + num)
	case FamilyBlocked:
		return MessageCode("BLOKwd" + num)
	}
	return MessageCode(k.String() + string(s))
}

// Entry describes one catalogued code.
type Entry struct {
	Code      MessageCode
	Milestone MilestoneKind
	Slot      Slot
}

// Catalog is the set of all message codes, grouped by milestone.
type Catalog struct {
	byCode map[MessageCode]Entry
	byKind map[MilestoneKind][]MessageCode
}

var ErrDuplicateCode = fmt.Errorf("message code registered twice")

// NewCatalog registers every slot of every given kind. It fails if two slots
// produce the same code or a kind is not a known milestone.
func NewCatalog(kinds []MilestoneKind) (*Catalog, error) {
	c := &Catalog{
		byCode: make(map[MessageCode]Entry),
		byKind: make(map[MilestoneKind][]MessageCode),
	}
	for _, k := range kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("invalid milestone %+v in catalog", k)
		}
		for _, s := range k.Slots() {
			code := k.Code(s)
			if prev, ok := c.byCode[code]; ok {
				return nil, fmt.Errorf("%w: %s (%s and %s)", ErrDuplicateCode, code, prev.Milestone, k)
			}
			c.byCode[code] = Entry{Code: code, Milestone: k, Slot: s}
			c.byKind[k] = append(c.byKind[k], code)
		}
	}
	return c, nil
}

// DefaultCatalog covers every milestone kind.
var DefaultCatalog = mustCatalog(AllMilestones())

func mustCatalog(kinds []MilestoneKind) *Catalog {
	c, err := NewCatalog(kinds)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Lookup(code MessageCode) (Entry, bool) {
	e, ok := c.byCode[code]
	return e, ok
}

// Codes returns the codes of one milestone in slot order.
func (c *Catalog) Codes(k MilestoneKind) []MessageCode {
	out := make([]MessageCode, len(c.byKind[k]))
	copy(out, c.byKind[k])
	return out
}

func (c *Catalog) Len() int { return len(c.byCode) }

// StuckCodes returns every terminal code in sorted order.
func (c *Catalog) StuckCodes() []MessageCode {
	var out []MessageCode
	for code, e := range c.byCode {
		if e.Slot == SlotStuck {
			out = append(out, code)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
