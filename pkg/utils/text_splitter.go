package utils

import "strings"

// SplitText cuts text into chunks of at most chunkSize runes. A chunk ends
// after the last newline or space in its second half when there is one, so
// words are only cut when a single word is longer than half a chunk.
func SplitText(text string, chunkSize int) []string {
	runes := []rune(text)
	if chunkSize <= 0 || len(runes) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	for len(runes) > chunkSize {
		cut := chunkSize
		for i := chunkSize - 1; i >= chunkSize/2; i-- {
			if runes[i] == '\n' || runes[i] == ' ' {
				cut = i + 1
				break
			}
		}

		if chunk := strings.TrimRight(string(runes[:cut]), " \n"); chunk != "" {
			chunks = append(chunks, chunk)
		}
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
