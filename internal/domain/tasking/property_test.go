package tasking_test

import (
	"fmt"
	"reflect"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rpggio/tasking/internal/domain/tasking"
)

// storeFrom builds a record store with one image per name (ids 1..n) and one
// area per parent reference (ids 1000+i). Parent references above n do not
// resolve.
func storeFrom(names []string, parents []int, assignees []string) tasking.Store {
	raw := map[string]map[string]any{}
	for i, name := range names {
		raw[strconv.Itoa(i+1)] = map[string]any{"Image File Name": name}
	}
	for i, parent := range parents {
		rec := map[string]any{
			"Area Name": fmt.Sprintf("area-%d", i),
			"Parent ID": parent,
		}
		if len(assignees) > 0 {
			rec["Assignee"] = assignees[i%len(assignees)]
		}
		raw[strconv.Itoa(1000+i)] = rec
	}
	store, _ := tasking.ParseStore(raw)
	return store
}

func properties(t *testing.T) *gopter.Properties {
	t.Helper()
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	return gopter.NewProperties(parameters)
}

func oneOf(values ...string) gopter.Gen {
	return gen.IntRange(0, len(values)-1).Map(func(i int) string { return values[i] })
}

var (
	genNames     = gen.SliceOf(oneOf("alpha", "beta", "gamma", "delta"))
	genParents   = gen.SliceOf(gen.IntRange(1, 12))
	genAssignees = gen.SliceOf(oneOf("", "bob", "carol", "dana"))
)

func TestBuildRowsProperties(t *testing.T) {
	properties := properties(t)

	properties.Property("every image and every resolvable area yields exactly one row", prop.ForAll(
		func(names []string, parents []int) bool {
			rows, warnings := tasking.BuildRows(storeFrom(names, parents, nil))
			resolvable := 0
			for _, p := range parents {
				if p <= len(names) {
					resolvable++
				}
			}
			seen := map[tasking.ID]bool{}
			for _, r := range rows {
				if seen[r.ID] {
					return false
				}
				seen[r.ID] = true
			}
			return len(rows) == len(names)+resolvable && len(warnings) == len(parents)-resolvable
		},
		genNames, genParents,
	))

	properties.Property("image tree paths are unique even when names collide", prop.ForAll(
		func(names []string) bool {
			rows, _ := tasking.BuildRows(storeFrom(names, nil, nil))
			paths := map[string]bool{}
			for _, r := range rows {
				if paths[r.TreePath[0]] {
					return false
				}
				paths[r.TreePath[0]] = true
			}
			return true
		},
		genNames,
	))

	properties.Property("images precede areas and areas sort by parent then name", prop.ForAll(
		func(names []string, parents []int) bool {
			rows, _ := tasking.BuildRows(storeFrom(names, parents, nil))
			seenArea := false
			for i, r := range rows {
				if !r.IsImage() {
					seenArea = true
					if i > 0 && !rows[i-1].IsImage() {
						prev := rows[i-1].GroupName
						cur := r.GroupName
						if prev[0] > cur[0] || (prev[0] == cur[0] && prev[1] > cur[1]) {
							return false
						}
					}
					continue
				}
				if seenArea {
					return false
				}
				if i > 0 && rows[i-1].GroupName[0] > r.GroupName[0] {
					return false
				}
			}
			return true
		},
		genNames, genParents,
	))

	properties.Property("building twice yields identical rows", prop.ForAll(
		func(names []string, parents []int, assignees []string) bool {
			store := storeFrom(names, parents, assignees)
			first, _ := tasking.BuildRows(store)
			second, _ := tasking.BuildRows(store)
			return reflect.DeepEqual(first, second)
		},
		genNames, genParents, genAssignees,
	))

	properties.TestingRun(t)
}

func TestReconcileProperties(t *testing.T) {
	properties := properties(t)

	properties.Property("image assignee cascades to all of its areas", prop.ForAll(
		func(names []string, parents []int, assignees []string, value string) bool {
			rows, _ := tasking.BuildRows(storeFrom(names, parents, assignees))
			for _, img := range rows {
				if !img.IsImage() {
					continue
				}
				updated, err := tasking.ApplyEdit(rows, tasking.Edit{RowID: img.ID, Field: tasking.FieldAssignee, Value: value})
				if err != nil {
					return false
				}
				for _, r := range updated {
					if r.ParentID == img.ID && r.Assignee != value {
						return false
					}
				}
			}
			return true
		},
		genNames, genParents, genAssignees, oneOf("erin", "fay"),
	))

	properties.Property("aggregate is the shared value or Multiple", prop.ForAll(
		func(names []string, parents []int, assignees []string) bool {
			rows, _ := tasking.BuildRows(storeFrom(names, parents, assignees))
			rows = tasking.RefreshAggregates(rows)
			for _, img := range rows {
				if !img.IsImage() {
					continue
				}
				values := map[string]bool{}
				for _, r := range rows {
					if r.ParentID == img.ID {
						values[r.Assignee] = true
					}
				}
				switch len(values) {
				case 0:
				case 1:
					if !values[img.Assignee] {
						return false
					}
				default:
					if img.Assignee != tasking.Multiple {
						return false
					}
				}
			}
			return true
		},
		genNames, genParents, genAssignees,
	))

	properties.TestingRun(t)
}

func TestSubmissionProperties(t *testing.T) {
	properties := properties(t)

	properties.Property("unassigned and Multiple never reach the payload", prop.ForAll(
		func(names []string, parents []int, assignees []string) bool {
			rows, _ := tasking.BuildRows(storeFrom(names, parents, append(assignees, tasking.Multiple)))
			rows = tasking.RefreshAggregates(rows)
			all := make([]tasking.ID, 0, len(rows))
			for _, r := range rows {
				all = append(all, r.ID)
			}
			for _, task := range tasking.BuildTaskAssignments(rows, all).Tasks {
				if task.Assignee == "" || task.Assignee == tasking.Multiple {
					return false
				}
			}
			return true
		},
		genNames, genParents, genAssignees,
	))

	properties.TestingRun(t)
}
