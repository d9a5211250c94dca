package fullscan

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
	"github.com/cockroachdb/errors"
)

// deletedPagesVersion is the first store format that tracks deleted and empty data pages.
const deletedPagesVersion = 3

type GinReport struct {
	FormatVersion uint16

	TotalPages     uint64
	DeletedPages   uint64
	EmptyDataPages uint64

	DataPages            uint64
	DataInnerPages       uint64
	DataLeafPages        uint64
	DataInnerFreeSpace   uint64
	DataLeafFreeSpace    uint64
	DataInnerTuplesCount uint64
	DataLeafIptrsCount   uint64

	EntryPages            uint64
	EntryInnerPages       uint64
	EntryLeafPages        uint64
	EntryInnerFreeSpace   uint64
	EntryLeafFreeSpace    uint64
	EntryInnerTuplesCount uint64
	EntryLeafTuplesCount  uint64
	EntryPostingSize      uint64
	EntryPostingCount     uint64
	EntryAttrSize         uint64
}

// GinStatPage classifies every page of an inverted-list tree and totals the
// space and entries of each class.
func GinStatPage(store treewalk.PageStore, metadata *pagecodec.MetaData) (GinReport, error) {

	report := GinReport{FormatVersion: metadata.FormatVersion}

	totalPages, err := scanPages(store, pagecodec.FamilyGin, func(page *treewalk.Page) error {

		switch {
		case page.IsDeleted() && report.tracksDeletedPages():
			report.DeletedPages++

		case page.IsData():
			return report.addDataPage(page)

		default:
			return report.addEntryPage(page)
		}
		return nil
	})

	if err != nil {
		slog.Error("gin page scan failed", "name", metadata.Name, "error", err.Error(), "function", "GinStatPage", "at", "fullscan")
		return GinReport{}, err
	}

	report.TotalPages = totalPages
	return report, nil
}

func (report *GinReport) tracksDeletedPages() bool {
	return report.FormatVersion >= deletedPagesVersion
}

func (report *GinReport) addDataPage(page *treewalk.Page) error {

	report.DataPages++

	if !page.IsLeaf() {
		report.DataInnerPages++
		report.DataInnerFreeSpace += uint64(page.FreeBytes())
		report.DataInnerTuplesCount += uint64(page.SlotCount())
		return nil
	}

	report.DataLeafPages++
	report.DataLeafFreeSpace += uint64(page.FreeBytes())

	numItems := 0
	for offset := pagecodec.FirstOffset; offset <= page.SlotCount(); offset++ {

		element, err := page.Slot(offset)
		if err != nil {
			return errors.Mark(err, treewalk.ErrNotATreePage)
		}

		segment, err := pagecodec.DecodeGinPostingSegment(element)
		if err != nil {
			return errors.Wrapf(err, "page %d offset %d", page.PageId(), offset)
		}
		numItems += len(segment)
	}

	if numItems == 0 && report.tracksDeletedPages() {
		report.EmptyDataPages++
	}
	report.DataLeafIptrsCount += uint64(numItems)

	return nil
}

func (report *GinReport) addEntryPage(page *treewalk.Page) error {

	report.EntryPages++

	if page.IsLeaf() {
		report.EntryLeafPages++
		report.EntryLeafFreeSpace += uint64(page.FreeBytes())
		report.EntryLeafTuplesCount += uint64(page.SlotCount())
	} else {
		report.EntryInnerPages++
		report.EntryInnerFreeSpace += uint64(page.FreeBytes())
		report.EntryInnerTuplesCount += uint64(page.SlotCount())
	}

	for offset := pagecodec.FirstOffset; offset <= page.SlotCount(); offset++ {

		element, err := page.Slot(offset)
		if err != nil {
			return errors.Mark(err, treewalk.ErrNotATreePage)
		}

		entry, err := pagecodec.DecodeGinEntryTuple(element)
		if err != nil {
			return errors.Wrapf(err, "page %d offset %d", page.PageId(), offset)
		}

		if !page.IsLeaf() {
			// key plus downlink
			report.EntryAttrSize += uint64(len(entry.Key) + 4)
			continue
		}

		report.EntryAttrSize += uint64(len(entry.Key))
		if !entry.IsPostingTree {
			report.EntryPostingCount += uint64(len(entry.Postings))
			report.EntryPostingSize += uint64(entry.PostingSize)
		}
	}
	return nil
}

func (report GinReport) String() string {

	var sb strings.Builder

	fmt.Fprintf(&sb, "totalPages:            %d\n", report.TotalPages)
	if report.tracksDeletedPages() {
		fmt.Fprintf(&sb, "deletedPages:          %d\n", report.DeletedPages)
		fmt.Fprintf(&sb, "emptyDataPages:        %d\n", report.EmptyDataPages)
	}
	fmt.Fprintf(&sb, "dataPages:             %d\n", report.DataPages)
	fmt.Fprintf(&sb, "dataInnerPages:        %d\n", report.DataInnerPages)
	fmt.Fprintf(&sb, "dataLeafPages:         %d\n", report.DataLeafPages)
	fmt.Fprintf(&sb, "dataInnerFreeSpace:    %d\n", report.DataInnerFreeSpace)
	fmt.Fprintf(&sb, "dataLeafFreeSpace:     %d\n", report.DataLeafFreeSpace)
	fmt.Fprintf(&sb, "dataInnerTuplesCount:  %d\n", report.DataInnerTuplesCount)
	fmt.Fprintf(&sb, "dataLeafIptrsCount:    %d\n", report.DataLeafIptrsCount)
	fmt.Fprintf(&sb, "entryPages:            %d\n", report.EntryPages)
	fmt.Fprintf(&sb, "entryInnerPages:       %d\n", report.EntryInnerPages)
	fmt.Fprintf(&sb, "entryLeafPages:        %d\n", report.EntryLeafPages)
	fmt.Fprintf(&sb, "entryInnerFreeSpace:   %d\n", report.EntryInnerFreeSpace)
	fmt.Fprintf(&sb, "entryLeafFreeSpace:    %d\n", report.EntryLeafFreeSpace)
	fmt.Fprintf(&sb, "entryInnerTuplesCount: %d\n", report.EntryInnerTuplesCount)
	fmt.Fprintf(&sb, "entryLeafTuplesCount:  %d\n", report.EntryLeafTuplesCount)
	fmt.Fprintf(&sb, "entryPostingSize:      %d\n", report.EntryPostingSize)
	fmt.Fprintf(&sb, "entryPostingCount:     %d\n", report.EntryPostingCount)
	fmt.Fprintf(&sb, "entryAttrSize:         %d\n", report.EntryAttrSize)

	return sb.String()
}
