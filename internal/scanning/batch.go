package scanning

import (
	"strings"

	"github.com/lehigh-university-libraries/shelfscan/internal/models"
	"github.com/lehigh-university-libraries/shelfscan/internal/providers"
)

// Instruction is the output contract given to the model ahead of the images.
// It is the only place duplicates across images are merged.
const Instruction = "Please look at these images of a bookshelf. I will provide the image filename before each image part. " +
	"Extract a list of all the visible books. Return a strictly valid JSON list of objects. " +
	"Each object must have 'title', 'author', and 'sources' keys. " +
	"'sources' must be an array of strings listing the filename(s) of the image(s) where this specific book was detected. " +
	"Combine duplicates: if a book is found in multiple images, create one object for it and list all corresponding image filenames in 'sources'. " +
	"Do not return markdown formatting, just the raw JSON."

const filenameLabelPrefix = "Image Filename: "

// Batch is the ordered multimodal request for one scan
type Batch struct {
	Parts []providers.Part
}

// AssembleBatch puts the instruction first, then a filename label immediately
// followed by its image for every normalized image, in the given order
func AssembleBatch(instruction string, normalized []models.NormalizedImage) Batch {
	parts := make([]providers.Part, 0, 1+2*len(normalized))
	parts = append(parts, providers.TextPart(instruction))

	for _, img := range normalized {
		parts = append(parts,
			providers.TextPart(filenameLabelPrefix+img.Filename),
			providers.ImagePart(img.MIMEType, img.Data),
		)
	}

	return Batch{Parts: parts}
}

// Filenames returns the labelled filenames in prompt order
func (b Batch) Filenames() []string {
	var names []string
	for i, p := range b.Parts {
		if p.IsImage() || !strings.HasPrefix(p.Text, filenameLabelPrefix) {
			continue
		}
		if i+1 < len(b.Parts) && b.Parts[i+1].IsImage() {
			names = append(names, strings.TrimPrefix(p.Text, filenameLabelPrefix))
		}
	}
	return names
}

// ImageCount returns the number of image parts in the batch
func (b Batch) ImageCount() int {
	n := 0
	for _, p := range b.Parts {
		if p.IsImage() {
			n++
		}
	}
	return n
}
