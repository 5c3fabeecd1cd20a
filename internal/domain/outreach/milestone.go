// internal/domain/outreach/milestone.go
package outreach

import (
	"fmt"
	"strconv"
)

// Family groups the milestones that share a message-code family shape.
type Family string

const (
	FamilySkillsReview Family = "SR"
	FamilyHomework     Family = "HW"
	FamilyReviewExam   Family = "RE"
	FamilyUnitExam     Family = "UE"
	FamilyFinal        Family = "FIN"
	FamilyUsersExam    Family = "US"
	FamilyStart        Family = "START"
	FamilyBlocked      Family = "BLOK"
)

const (
	MaxUnit      = 4
	MaxObjective = 5
)

// MilestoneKind identifies one gradeable checkpoint. Unit and Objective are zero
// for families that are not per-unit.
type MilestoneKind struct {
	Family    Family
	Unit      int
	Objective int
}

var (
	SkillsReview  = MilestoneKind{Family: FamilySkillsReview}
	Final         = MilestoneKind{Family: FamilyFinal}
	UsersExam     = MilestoneKind{Family: FamilyUsersExam}
	StartOfCourse = MilestoneKind{Family: FamilyStart}
	Blocked       = MilestoneKind{Family: FamilyBlocked}
)

func Homework(unit, objective int) MilestoneKind {
	return MilestoneKind{Family: FamilyHomework, Unit: unit, Objective: objective}
}

func ReviewExam(unit int) MilestoneKind {
	return MilestoneKind{Family: FamilyReviewExam, Unit: unit}
}

func UnitExam(unit int) MilestoneKind {
	return MilestoneKind{Family: FamilyUnitExam, Unit: unit}
}

// AllMilestones lists every milestone kind in catalog order.
func AllMilestones() []MilestoneKind {
	kinds := []MilestoneKind{StartOfCourse, UsersExam, SkillsReview}
	for u := 1; u <= MaxUnit; u++ {
		for o := 1; o <= MaxObjective; o++ {
			kinds = append(kinds, Homework(u, o))
		}
		kinds = append(kinds, ReviewExam(u), UnitExam(u))
	}
	return append(kinds, Final, Blocked)
}

// Valid reports whether k is one of the kinds listed by AllMilestones.
func (k MilestoneKind) Valid() bool {
	switch k.Family {
	case FamilySkillsReview, FamilyFinal, FamilyUsersExam, FamilyStart, FamilyBlocked:
		return k.Unit == 0 && k.Objective == 0
	case FamilyHomework:
		return k.Unit >= 1 && k.Unit <= MaxUnit && k.Objective >= 1 && k.Objective <= MaxObjective
	case FamilyReviewExam, FamilyUnitExam:
		return k.Unit >= 1 && k.Unit <= MaxUnit && k.Objective == 0
	}
	return false
}

func (k MilestoneKind) String() string {
	switch k.Family {
	case FamilyHomework:
		return fmt.Sprintf("H%d%d", k.Unit, k.Objective)
	case FamilyReviewExam, FamilyUnitExam:
		return string(k.Family) + strconv.Itoa(k.Unit)
	}
	return string(k.Family)
}

// ParseMilestone is the inverse of MilestoneKind.String.
func ParseMilestone(s string) (MilestoneKind, error) {
	var k MilestoneKind
	switch {
	case s == string(FamilySkillsReview), s == string(FamilyFinal), s == string(FamilyUsersExam),
		s == string(FamilyStart), s == string(FamilyBlocked):
		k = MilestoneKind{Family: Family(s)}
	case len(s) == 3 && s[0] == 'H':
		k = Homework(int(s[1]-'0'), int(s[2]-'0'))
	case len(s) == 3 && (s[:2] == string(FamilyReviewExam) || s[:2] == string(FamilyUnitExam)):
		k = MilestoneKind{Family: Family(s[:2]), Unit: int(s[2] - '0')}
	default:
		return MilestoneKind{}, fmt.Errorf("unknown milestone %q", s)
	}
	if !k.Valid() {
		return MilestoneKind{}, fmt.Errorf("unknown milestone %q", s)
	}
	return k, nil
}
