package extract

import "github.com/lu4p/cat"

// extractWithCat handles ODT and RTF by content-type sniffing.
func extractWithCat(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", wrapExtract("odt/rtf", err)
	}
	return text, nil
}
