package space

// Intersect returns the words present in both source and reference, ordered by the
// reference vocabulary. The order fixes the row correspondence of the alignment
// matrices, so it must not depend on map iteration.
func Intersect(source, reference *Space) ([]string, error) {
	shared := make([]string, 0, min(source.Len(), reference.Len()))
	for _, w := range reference.words {
		if source.Has(w) {
			shared = append(shared, w)
		}
	}
	if len(shared) == 0 {
		return nil, &AlignmentError{
			SourceID:    source.ID(),
			ReferenceID: reference.ID(),
			Reason:      "no shared vocabulary",
		}
	}
	return shared, nil
}
