package fullscan

import (
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
)

// scanPages visits every page after the metapage in file order, holding one
// read lock at a time. The visitor runs with the page locked.
func scanPages(store treewalk.PageStore, family pagecodec.TreeFamily, visit func(page *treewalk.Page) error) (uint64, error) {

	numPages, err := store.NumPages()
	if err != nil {
		return 0, err
	}

	for pageId := uint64(pagecodec.MetaDataPageId + 1); pageId < numPages; pageId++ {

		page, err := treewalk.LoadPage(store, pageId, family)
		if err != nil {
			return 0, err
		}

		err = visit(page)
		page.Release()

		if err != nil {
			return 0, err
		}
	}

	if numPages == 0 {
		return 0, nil
	}

	// the metapage is not part of the tree
	return numPages - 1, nil
}
