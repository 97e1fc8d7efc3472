package model

// Decision labels that are not class names.
const (
	LabelUnknown = "Unknown"
	LabelError   = "Error"
)

// ConfidenceThreshold is the minimum top-class probability for a label to be
// reported instead of LabelUnknown.
const ConfidenceThreshold float32 = 0.7

// LabelSet is an ordered, immutable list of class names.
type LabelSet struct {
	names []string
	index map[string]int
}

// Labels are the respiratory conditions in the classifier's output order.
var Labels = NewLabelSet("URTI", "Healthy", "COPD", "Bronchiectasis", "Pneumonia", "Bronchiolitis")

func NewLabelSet(names ...string) *LabelSet {
	l := &LabelSet{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, n := range l.names {
		l.index[n] = i
	}
	return l
}

// Name returns the class name at index i.
func (l *LabelSet) Name(i int) (string, bool) {
	if i < 0 || i >= len(l.names) {
		return "", false
	}
	return l.names[i], true
}

// Index returns the position of name.
func (l *LabelSet) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

func (l *LabelSet) Len() int {
	return len(l.names)
}

// Names returns a copy of the names in order.
func (l *LabelSet) Names() []string {
	return append([]string(nil), l.names...)
}
