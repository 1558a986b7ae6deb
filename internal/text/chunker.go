package text

import "strings"

// ChunkWords splits the concatenated page texts into fixed-size windows of
// whitespace-delimited words. Chunk i covers words [i*size, (i+1)*size) of
// the full word sequence; the last chunk may be shorter. All-whitespace
// chunks are dropped and do not occupy an index slot in the returned
// sequence.
//
// The split is deterministic: identical input always yields an identical
// chunk sequence, which keeps re-ingestion reproducible.
func ChunkWords(pages []string, size int) []string {
	if size < 1 {
		return nil
	}

	words := Words(pages)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+size-1)/size)
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// Words returns the whitespace-delimited word sequence of the concatenated
// page texts, in page order. strings.Fields never produces empty tokens, so
// pages containing only whitespace contribute nothing.
func Words(pages []string) []string {
	var words []string
	for _, page := range pages {
		words = append(words, strings.Fields(page)...)
	}
	return words
}
