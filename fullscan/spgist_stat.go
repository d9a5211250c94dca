package fullscan

import (
	"fmt"
	"log/slog"

	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
	"github.com/cockroachdb/errors"
)

type SpgistReport struct {
	TotalPages   uint64
	DeletedPages uint64
	InnerPages   uint64
	LeafPages    uint64
	EmptyPages   uint64

	// byte totals over pages that are neither new nor deleted
	UsedSpace      uint64
	UsedInnerSpace uint64
	UsedLeafSpace  uint64

	LeafTuples        uint64
	InnerTuples       uint64
	InnerAllTheSame   uint64
	LeafPlaceholders  uint64
	InnerPlaceholders uint64
	LeafRedirects     uint64
	InnerRedirects    uint64
}

// SpgistStat classifies every page of a space-partition tree.
func SpgistStat(store treewalk.PageStore) (SpgistReport, error) {

	report := SpgistReport{}

	totalPages, err := scanPages(store, pagecodec.FamilySpgist, func(page *treewalk.Page) error {

		if page.IsNew() || page.IsDeleted() {
			report.DeletedPages++
			return nil
		}

		header := page.Header()

		if page.IsLeaf() {
			report.LeafPages++
			report.LeafTuples += uint64(page.SlotCount())
			report.LeafPlaceholders += uint64(header.NPlaceholder)
			report.LeafRedirects += uint64(header.NRedirection)
		} else {
			report.InnerPages++
			report.InnerTuples += uint64(page.SlotCount())
			report.InnerPlaceholders += uint64(header.NPlaceholder)
			report.InnerRedirects += uint64(header.NRedirection)

			if err := report.countAllTheSame(page); err != nil {
				return err
			}
		}

		used := uint64(pagecodec.PageCapacity - page.FreeBytes())

		report.UsedSpace += used
		if page.IsLeaf() {
			report.UsedLeafSpace += used
		} else {
			report.UsedInnerSpace += used
		}

		if page.FreeBytes() == pagecodec.PageCapacity {
			report.EmptyPages++
		}
		return nil
	})

	if err != nil {
		slog.Error("spgist page scan failed", "error", err.Error(), "function", "SpgistStat", "at", "fullscan")
		return SpgistReport{}, err
	}

	report.TotalPages = totalPages
	return report, nil
}

func (report *SpgistReport) countAllTheSame(page *treewalk.Page) error {

	for offset := pagecodec.FirstOffset; offset <= page.SlotCount(); offset++ {

		element, err := page.Slot(offset)
		if err != nil {
			return errors.Mark(err, treewalk.ErrNotATreePage)
		}

		tuple, err := pagecodec.DecodeSpgistTuple(element, false)
		if err != nil {
			return errors.Wrapf(err, "page %d offset %d", page.PageId(), offset)
		}

		if tuple.Inner != nil && tuple.Inner.AllTheSame {
			report.InnerAllTheSame++
		}
	}
	return nil
}

// FreeSpace is the unused part of every page of the tree, in bytes.
func (report SpgistReport) FreeSpace() float64 {
	return float64(pagecodec.PageCapacity)*float64(report.TotalPages) - float64(report.UsedSpace)
}

func (report SpgistReport) FillRatio() float64 {

	if report.TotalPages == 0 {
		return 0
	}
	return 100.0 * float64(report.UsedSpace) / (float64(pagecodec.PageCapacity) * float64(report.TotalPages))
}

func (report SpgistReport) String() string {

	return fmt.Sprintf("totalPages:        %d\n"+
		"deletedPages:      %d\n"+
		"innerPages:        %d\n"+
		"leafPages:         %d\n"+
		"emptyPages:        %d\n"+
		"usedSpace:         %.2f kbytes\n"+
		"usedInnerSpace:    %.2f kbytes\n"+
		"usedLeafSpace:     %.2f kbytes\n"+
		"freeSpace:         %.2f kbytes\n"+
		"fillRatio:         %.2f%%\n"+
		"leafTuples:        %d\n"+
		"innerTuples:       %d\n"+
		"innerAllTheSame:   %d\n"+
		"leafPlaceholders:  %d\n"+
		"innerPlaceholders: %d\n"+
		"leafRedirects:     %d\n"+
		"innerRedirects:    %d",
		report.TotalPages, report.DeletedPages, report.InnerPages, report.LeafPages, report.EmptyPages,
		float64(report.UsedSpace)/1024.0,
		float64(report.UsedInnerSpace)/1024.0,
		float64(report.UsedLeafSpace)/1024.0,
		report.FreeSpace()/1024.0,
		report.FillRatio(),
		report.LeafTuples, report.InnerTuples, report.InnerAllTheSame,
		report.LeafPlaceholders, report.InnerPlaceholders,
		report.LeafRedirects, report.InnerRedirects)
}
