package gist

import (
	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treewalk"
	"github.com/cockroachdb/errors"
)

// frame is one open page on the walk stack. The page stays read-locked while
// the frame is on the stack.
type frame struct {
	page       *treewalk.Page
	nextOffset uint16
	depth      int
}

// visit is reported once per page, the first time the walker opens it.
type visit struct {
	page *treewalk.Page

	// parentOffset is the slot in the parent that led here, 0 for the root.
	parentOffset uint16
	depth        int
}

// step is reported once per tuple.
type step struct {
	tuple pagecodec.GistTuple
	depth int
	leaf  bool
}

// walker is the depth-first pre-order traversal every operation of this
// package runs on. Invalid inner tuples are reported but never descended.
type walker struct {
	store    treewalk.PageStore
	root     uint64
	maxDepth int

	stack   treewalk.Stack[frame]
	started bool
	done    bool

	onVisit func(visit)
}

func newWalker(store treewalk.PageStore, root uint64, maxDepth int) *walker {

	return &walker{
		store:    store,
		root:     root,
		maxDepth: maxDepth,
	}
}

func (w *walker) open(pageId uint64, parentOffset uint16, depth int) error {

	page, err := treewalk.LoadPage(w.store, pageId, pagecodec.FamilyGist)
	if err != nil {
		return err
	}

	w.stack.Push(frame{page: page, nextOffset: pagecodec.FirstOffset, depth: depth})

	if w.onVisit != nil {
		w.onVisit(visit{page: page, parentOffset: parentOffset, depth: depth})
	}
	return nil
}

func (w *walker) canDescend(depth int) bool {
	return w.maxDepth < 0 || depth < w.maxDepth
}

// next advances the walk by one tuple. ok is false once every page was visited.
// On error every held page is released.
func (w *walker) next() (step, bool, error) {

	if w.done {
		return step{}, false, nil
	}

	if !w.started {

		w.started = true
		if err := w.open(w.root, 0, 0); err != nil {
			w.close()
			return step{}, false, err
		}
	}

	for {

		top, ok := w.stack.Peek()
		if !ok {
			w.done = true
			return step{}, false, nil
		}

		if top.nextOffset > top.page.SlotCount() {
			top.page.Release()
			w.stack.Pop()
			continue
		}

		offset := top.nextOffset
		top.nextOffset++

		element, err := top.page.Slot(offset)
		if err != nil {
			w.close()
			return step{}, false, errors.Mark(err, treewalk.ErrNotATreePage)
		}

		tuple, err := pagecodec.DecodeGistTuple(element)
		if err != nil {
			w.close()
			return step{}, false, errors.Wrapf(err, "page %d offset %d", top.page.PageId(), offset)
		}

		current := step{tuple: tuple, depth: top.depth, leaf: top.page.IsLeaf()}

		if !current.leaf && !tuple.Invalid && w.canDescend(current.depth) {

			// top is not used past this point, open may grow the stack
			if err := w.open(tuple.ChildPageId(), offset, current.depth+1); err != nil {
				w.close()
				return step{}, false, err
			}
		}

		return current, true, nil
	}
}

// run drives the walk to the end.
func (w *walker) run() error {

	for {
		_, ok, err := w.next()
		if err != nil || !ok {
			return err
		}
	}
}

// close releases every page still on the stack.
func (w *walker) close() {

	w.stack.Drain(func(f frame) {
		f.page.Release()
	})
	w.done = true
}
