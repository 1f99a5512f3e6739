package domain

import "strings"

// Category is a closed set validated at the API boundary. Storage keeps it as
// plain text so adding a category never needs a schema change.
type Category string

const (
	CategoryFood         Category = "food"
	CategoryFoodPickup   Category = "food_pickup"
	CategoryFoodDelivery Category = "food_delivery"
	CategoryGroceries    Category = "groceries"
	CategoryPackage      Category = "package"
	CategoryLaundry      Category = "laundry"
	CategoryMoving       Category = "moving"
	CategoryTechHelp     Category = "tech_help"
	CategoryOther        Category = "other"
)

var categories = map[Category]struct{}{
	CategoryFood:         {},
	CategoryFoodPickup:   {},
	CategoryFoodDelivery: {},
	CategoryGroceries:    {},
	CategoryPackage:      {},
	CategoryLaundry:      {},
	CategoryMoving:       {},
	CategoryTechHelp:     {},
	CategoryOther:        {},
}

// ParseCategory normalizes case and accepts hyphenated spellings
// ("Food-Pickup" -> food_pickup). Empty input maps to other.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryOther, true
	}
	c := Category(strings.ReplaceAll(s, "-", "_"))
	if _, ok := categories[c]; !ok {
		return "", false
	}
	return c, true
}

type Phase string

const (
	PhaseNone      Phase = "none"
	PhaseStarted   Phase = "started"
	PhasePickedUp  Phase = "picked_up"
	PhaseOnTheWay  Phase = "on_the_way"
	PhaseDelivered Phase = "delivered"
	PhaseCompleted Phase = "completed"
)

func ParsePhase(s string) (Phase, bool) {
	switch p := Phase(strings.ToLower(strings.TrimSpace(s))); p {
	case PhaseNone, PhaseStarted, PhasePickedUp, PhaseOnTheWay, PhaseDelivered, PhaseCompleted:
		return p, true
	default:
		return "", false
	}
}

// IsFinal reports whether reaching p finishes the task.
func (p Phase) IsFinal() bool {
	return p == PhaseCompleted || p == PhaseDelivered
}

// Workflow is the ordered phase sequence of a category. The first element is
// always PhaseNone and the last is a final phase.
type Workflow []Phase

var (
	workflowDefault  = Workflow{PhaseNone, PhaseStarted, PhaseCompleted}
	workflowPickup   = Workflow{PhaseNone, PhaseStarted, PhasePickedUp, PhaseCompleted}
	workflowDelivery = Workflow{PhaseNone, PhaseStarted, PhaseOnTheWay, PhaseDelivered}
)

// workflows registers the categories that do not use the default workflow.
// Adding a category-specific workflow is an entry here.
var workflows = map[Category]Workflow{
	CategoryFoodPickup:   workflowPickup,
	CategoryFoodDelivery: workflowDelivery,
	CategoryGroceries:    workflowPickup,
	CategoryPackage:      workflowDelivery,
}

// WorkflowFor returns the phase workflow for a category.
func WorkflowFor(c Category) Workflow {
	if wf, ok := workflows[c]; ok {
		return wf
	}
	return workflowDefault
}

func (w Workflow) index(p Phase) int {
	for i, q := range w {
		if q == p {
			return i
		}
	}
	return -1
}

// Contains reports whether p is a step of the workflow.
func (w Workflow) Contains(p Phase) bool {
	return w.index(p) >= 0
}

// Next returns the immediate successor of p, if any.
func (w Workflow) Next(p Phase) (Phase, bool) {
	i := w.index(p)
	if i < 0 || i == len(w)-1 {
		return "", false
	}
	return w[i+1], true
}

// Final returns the phase that completes the workflow.
func (w Workflow) Final() Phase {
	return w[len(w)-1]
}

// Canonical maps either final spelling (completed, delivered) onto the
// workflow's own final phase.
func (w Workflow) Canonical(p Phase) Phase {
	if p.IsFinal() {
		return w.Final()
	}
	return p
}

// ValidTransition checks a phase change. Only the immediate successor is
// allowed, plus none -> final when the workflow has exactly one intermediate
// step (start-and-complete).
func (w Workflow) ValidTransition(from, to Phase) bool {
	if next, ok := w.Next(from); ok && next == to {
		return true
	}
	return from == PhaseNone && len(w) == 3 && to == w.Final()
}

// StatusFor derives the task status from a phase.
func (w Workflow) StatusFor(p Phase) TaskStatus {
	if p.IsFinal() {
		return TaskStatusCompleted
	}
	return TaskStatusAccepted
}
