package chat

// VariantPolicy selects which stored resolution of an inbound media object to
// keep as evidence.
type VariantPolicy string

const (
	VariantLargest       VariantPolicy = "largest"
	VariantSecondLargest VariantPolicy = "second-largest"
	VariantSmallest      VariantPolicy = "smallest"
)

func (p VariantPolicy) Valid() bool {
	switch p {
	case VariantLargest, VariantSecondLargest, VariantSmallest:
		return true
	}
	return false
}

// Pick chooses a variant by pixel area. Transports are expected to deliver
// variants in ascending size order, but Pick does not rely on that.
func (p VariantPolicy) Pick(variants []MediaVariant) MediaRef {
	if len(variants) == 0 {
		return ""
	}

	largest, second, smallest := -1, -1, 0
	for i, v := range variants {
		if largest < 0 || area(v) > area(variants[largest]) {
			second = largest
			largest = i
		} else if second < 0 || area(v) > area(variants[second]) {
			second = i
		}
		if area(v) < area(variants[smallest]) {
			smallest = i
		}
	}

	switch p {
	case VariantSmallest:
		return variants[smallest].Ref
	case VariantSecondLargest:
		if second >= 0 {
			return variants[second].Ref
		}
		return variants[largest].Ref
	default:
		return variants[largest].Ref
	}
}

func area(v MediaVariant) int {
	return v.Width * v.Height
}
