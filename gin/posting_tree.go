package gin

import (
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
	"github.com/cockroachdb/errors"
)

// EstimatePostingTree guesses the number of items in a posting tree from its
// leftmost path: the product of the inner page fanouts times the items on the
// leftmost leaf. Only the leftmost path is read.
func EstimatePostingTree(store treewalk.PageStore, root uint64) (int, error) {

	page, err := treewalk.LoadPage(store, root, pagecodec.FamilyGin)
	if err != nil {
		return 0, err
	}

	predictNumber := 1

	for {
		if !page.IsData() {
			page.Release()
			return 0, errors.Mark(errors.Newf("page %d is not a posting tree page", page.PageId()), treewalk.ErrNotATreePage)
		}

		if page.IsLeaf() {
			break
		}

		if page.SlotCount() == 0 {
			page.Release()
			return 0, errors.Mark(errors.Newf("posting tree page %d has no children", page.PageId()), treewalk.ErrNotATreePage)
		}

		predictNumber *= int(page.SlotCount())

		element, err := page.Slot(pagecodec.FirstOffset)
		if err != nil {
			page.Release()
			return 0, errors.Mark(err, treewalk.ErrNotATreePage)
		}

		item, err := pagecodec.DecodeGinPostingItem(element)
		page.Release()

		if err != nil {
			return 0, err
		}

		if page, err = treewalk.LoadPage(store, uint64(item.Child), pagecodec.FamilyGin); err != nil {
			return 0, err
		}
	}

	defer page.Release()

	items := 0
	for offset := pagecodec.FirstOffset; offset <= page.SlotCount(); offset++ {

		element, err := page.Slot(offset)
		if err != nil {
			return 0, errors.Mark(err, treewalk.ErrNotATreePage)
		}

		segment, err := pagecodec.DecodeGinPostingSegment(element)
		if err != nil {
			return 0, err
		}
		items += len(segment)
	}

	return predictNumber * items, nil
}
