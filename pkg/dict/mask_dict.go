package dict

import "github.com/xaynetics/pet-coordinator/pkg/mask"

// MaskDict is a multiset of the mask objects summers report back during
// Sum2. The Unmask phase picks the most frequently reported mask, breaking
// ties by whichever distinct mask was first reported.
type MaskDict struct {
	counts  map[string]int
	objects map[string]mask.Object
	order   []string
}

// NewMaskDict returns an empty mask dictionary.
func NewMaskDict() *MaskDict {
	return &MaskDict{
		counts:  make(map[string]int),
		objects: make(map[string]mask.Object),
	}
}

// Increment records one more report of obj.
func (d *MaskDict) Increment(obj mask.Object) {
	key := obj.Key()
	if _, seen := d.counts[key]; !seen {
		d.objects[key] = obj
		d.order = append(d.order, key)
	}
	d.counts[key]++
}

// Len returns the number of reports recorded (counting repeats).
func (d *MaskDict) Len() int {
	total := 0
	for _, c := range d.counts {
		total += c
	}
	return total
}

// IsEmpty reports whether no mask has been reported yet.
func (d *MaskDict) IsEmpty() bool {
	return len(d.counts) == 0
}

// Mode returns the most frequently reported mask, tie-breaking in favor of
// whichever distinct mask was reported first. ok is false when the
// dictionary is empty.
func (d *MaskDict) Mode() (mask.Object, bool) {
	if d.IsEmpty() {
		return mask.Object{}, false
	}

	bestKey, _ := d.modeKey()
	return d.objects[bestKey], true
}

// MaxCount returns the report count of the current mode, i.e.
// max_count(mask_dict) in the Sum2 quorum predicate. It is 0 when the
// dictionary is empty.
func (d *MaskDict) MaxCount() int {
	_, bestCount := d.modeKey()
	return bestCount
}

func (d *MaskDict) modeKey() (string, int) {
	bestKey := ""
	bestCount := 0
	for _, key := range d.order {
		if d.counts[key] > bestCount {
			bestCount = d.counts[key]
			bestKey = key
		}
	}
	return bestKey, bestCount
}
