// Package sequence orders cropped outputs across uploaded scans and assigns
// the page, photo and global numbers fed into naming patterns.
package sequence

import "github.com/zombor/scansplitter/internal/naming"

// File is one uploaded scan. Photos holds the number of cropped photos on
// each page, so len(Photos) is the page count.
type File struct {
	Name   string
	Photos []int
}

// Slot identifies one output in export order
type Slot struct {
	FileIndex   int `json:"file_index"`
	Page        int `json:"page"`         // 1-based within the file
	Photo       int `json:"photo"`        // 1-based within the page
	GlobalIndex int `json:"global_index"` // 0-based across all files
}

// Assign walks files in order, then pages, then photos, and numbers every
// output. For two files A before B every slot of A has a lower GlobalIndex
// than every slot of B.
func Assign(files []File) []Slot {
	total := 0
	for _, f := range files {
		for _, n := range f.Photos {
			total += max(n, 0)
		}
	}

	slots := make([]Slot, 0, total)
	for fi, f := range files {
		for pi, n := range f.Photos {
			for photo := 1; photo <= n; photo++ {
				slots = append(slots, Slot{
					FileIndex:   fi,
					Page:        pi + 1,
					Photo:       photo,
					GlobalIndex: len(slots),
				})
			}
		}
	}
	return slots
}

// Names renders the name of every slot with pattern. The result is parallel
// to slots.
func Names(p naming.Pattern, files []File, slots []Slot) []string {
	names := make([]string, len(slots))
	for i, s := range slots {
		names[i] = p.Name(files[s.FileIndex].Name, s.Page, s.GlobalIndex, s.Photo-1)
	}
	return names
}
