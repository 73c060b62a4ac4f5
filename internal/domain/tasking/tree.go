package tasking

import (
	"fmt"
	"sort"
)

// BuildRows turns the record store into ordered tree rows.
//
// Image rows come first, sorted by display name. Area rows follow, sorted by
// parent display name then area name. Areas whose parent is not an image in
// the store are dropped and reported; the build never stops early.
func BuildRows(store Store) ([]Row, []Warning) {
	images := make([]Record, 0, len(store))
	areas := make([]Record, 0, len(store))
	for _, rec := range store {
		switch rec.Kind {
		case KindImage:
			images = append(images, rec)
		case KindArea:
			areas = append(areas, rec)
		}
	}

	sort.Slice(images, func(i, j int) bool {
		if images[i].Name != images[j].Name {
			return images[i].Name < images[j].Name
		}
		return images[i].ID < images[j].ID
	})

	var warnings []Warning
	resolved := areas[:0]
	for _, area := range areas {
		parent, ok := store[area.ParentID]
		if !ok || !parent.IsImage() {
			warnings = append(warnings, Warning{
				RecordID: area.ID,
				Reason:   fmt.Sprintf("parent image %s not found", area.ParentID),
			})
			continue
		}
		resolved = append(resolved, area)
	}

	sort.Slice(resolved, func(i, j int) bool {
		pi, pj := store[resolved[i].ParentID].Name, store[resolved[j].ParentID].Name
		if pi != pj {
			return pi < pj
		}
		if resolved[i].Name != resolved[j].Name {
			return resolved[i].Name < resolved[j].Name
		}
		if resolved[i].ParentID != resolved[j].ParentID {
			return resolved[i].ParentID < resolved[j].ParentID
		}
		return resolved[i].ID < resolved[j].ID
	})

	rows := make([]Row, 0, len(images)+len(resolved))
	for _, img := range images {
		rows = append(rows, Row{
			ID:         img.ID,
			Kind:       KindImage,
			GroupName:  []string{img.Name},
			TreePath:   []string{ImagePathSegment(img.ID)},
			Assignee:   img.Assignee,
			Priority:   img.Priority,
			Attributes: img.Attributes,
		})
	}
	for _, area := range resolved {
		parent := store[area.ParentID]
		rows = append(rows, Row{
			ID:          area.ID,
			Kind:        KindArea,
			GroupName:   []string{parent.Name, area.Name},
			TreePath:    []string{ImagePathSegment(parent.ID), area.Name},
			ParentID:    parent.ID,
			SecondaryID: area.SecondaryID,
			Assignee:    area.Assignee,
			Attributes:  area.Attributes,
		})
	}

	sort.SliceStable(warnings, func(i, j int) bool { return warnings[i].RecordID < warnings[j].RecordID })
	return rows, warnings
}

// Children returns the indexes of the area rows owned by imageID, in row order.
func Children(rows []Row, imageID ID) []int {
	var idx []int
	for i, r := range rows {
		if !r.IsImage() && r.ParentID == imageID {
			idx = append(idx, i)
		}
	}
	return idx
}

// Index maps row ids to their position in rows.
func Index(rows []Row) map[ID]int {
	idx := make(map[ID]int, len(rows))
	for i, r := range rows {
		idx[r.ID] = i
	}
	return idx
}
