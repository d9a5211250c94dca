package main

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/Adarsh-Kmt/IndexInspector/pagecodec"
	"github.com/Adarsh-Kmt/IndexInspector/treebuild"
	"github.com/cockroachdb/errors"
)

const generatorSeed = 0x1d5eed

var words = []string{
	"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel",
	"india", "juliet", "kilo", "lima", "mike", "november", "oscar", "papa",
	"quebec", "romeo", "sierra", "tango", "uniform", "victor", "whiskey", "xray",
	"yankee", "zulu",
}

func heapPointer(i int) pagecodec.ItemPointer {
	return pagecodec.ItemPointer{Block: uint32(i / 100), Offset: uint16(i%100 + 1)}
}

// Generate writes a synthetic tree of the given family under name. The same
// arguments always produce the same tree.
func (engine *InspectEngine) Generate(family pagecodec.TreeFamily, name string, numRows int) (*pagecodec.MetaData, error) {

	engine.openTreesMutex.Lock()
	_, open := engine.openTrees[name]
	engine.openTreesMutex.Unlock()

	if open {
		return nil, errors.Newf("%s is open", name)
	}

	disk, err := engine.catalog.Create(name)
	if err != nil {
		return nil, err
	}
	defer disk.Close()

	random := rand.New(rand.NewPCG(generatorSeed, uint64(numRows)))

	var metadata *pagecodec.MetaData

	switch family {

	case pagecodec.FamilyGist:
		rows := make([]treebuild.GistRow, 0, numRows)
		for i := range numRows {
			rows = append(rows, treebuild.GistRow{
				Pointer: heapPointer(i),
				Values: [][]byte{
					[]byte(fmt.Sprintf("%s-%06d", words[i%len(words)], i)),
					pagecodec.EncodeInt64Key(random.Int64N(1_000_000)),
				},
			})
		}
		metadata, err = treebuild.BuildGist(disk, rows, treebuild.GistOptions{Name: name, NumAttributes: 2})

	case pagecodec.FamilyGin:
		// every row holds a few words and one bucketed number
		postings := make(map[string][]pagecodec.ItemPointer)
		numbers := make(map[int64][]pagecodec.ItemPointer)
		for i := range numRows {
			for range 1 + random.IntN(3) {
				word := words[random.IntN(len(words))]
				postings[word] = append(postings[word], heapPointer(i))
			}
			bucket := random.Int64N(16)
			numbers[bucket] = append(numbers[bucket], heapPointer(i))
		}

		entries := make([]treebuild.GinEntry, 0, len(postings)+len(numbers))
		for word, items := range postings {
			entries = append(entries, treebuild.GinEntry{Attribute: 0, Key: []byte(word), Items: dedupe(items)})
		}
		for bucket, items := range numbers {
			entries = append(entries, treebuild.GinEntry{Attribute: 1, Key: pagecodec.EncodeInt64Key(bucket), Items: items})
		}

		metadata, err = treebuild.BuildGin(disk, entries, treebuild.GinOptions{
			Name:      name,
			Orderings: []pagecodec.KeyOrdering{pagecodec.OrderingBytes, pagecodec.OrderingInt64},
		})

	case pagecodec.FamilySpgist:
		rows := make([]treebuild.SpgistRow, 0, numRows)
		for i := range numRows {
			datum := fmt.Sprintf("%s%d", words[random.IntN(len(words))], random.IntN(1000))
			rows = append(rows, treebuild.SpgistRow{HeapPointer: heapPointer(i), Datum: []byte(datum)})
		}
		metadata, err = treebuild.BuildSpgist(disk, rows, treebuild.SpgistOptions{Name: name})

	default:
		return nil, errors.Wrapf(ErrUnknownKind, "family %s", family)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "generating %s", name)
	}

	slog.Info("tree generated", "name", name, "family", family.String(), "rows", numRows, "function", "Generate", "at", "InspectEngine")
	return metadata, nil
}

// dedupe drops repeats of the same pointer; items arrive in row order.
func dedupe(items []pagecodec.ItemPointer) []pagecodec.ItemPointer {

	unique := items[:0]
	for _, item := range items {
		if len(unique) == 0 || unique[len(unique)-1] != item {
			unique = append(unique, item)
		}
	}
	return unique
}
