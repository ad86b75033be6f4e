package enum

import "strings"

// SourceTag identifies the feed format a raw message was produced by.
type SourceTag uint8

const (
	_source_tag_beg SourceTag = iota
	SourceCTPTick
	SourceDCEL1
	SourceCZCEL1
	SourceNSQDepth
	SourceGFEXL2
	_source_tag_end
)

var _sourceTagNames = [...]string{
	SourceCTPTick:  "CTP_TICK",
	SourceDCEL1:    "DCE_L1",
	SourceCZCEL1:   "CZCE_L1",
	SourceNSQDepth: "NSQ_DEPTH",
	SourceGFEXL2:   "GFEX_L2",
}

func (s SourceTag) IsAvailable() bool {
	return s > _source_tag_beg && s < _source_tag_end
}

func (s SourceTag) String() string {
	if !s.IsAvailable() {
		return "UNKNOWN"
	}
	return _sourceTagNames[s]
}

// ParseSourceTag accepts the wire names, case-insensitive.
func ParseSourceTag(s string) (SourceTag, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for tag := _source_tag_beg + 1; tag < _source_tag_end; tag++ {
		if _sourceTagNames[tag] == s {
			return tag, true
		}
	}
	return _source_tag_beg, false
}

// SourceTags lists every available tag in declaration order.
func SourceTags() []SourceTag {
	tags := make([]SourceTag, 0, int(_source_tag_end)-1)
	for tag := _source_tag_beg + 1; tag < _source_tag_end; tag++ {
		tags = append(tags, tag)
	}
	return tags
}

func (s SourceTag) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SourceTag) UnmarshalText(b []byte) error {
	tag, _ := ParseSourceTag(string(b))
	*s = tag
	return nil
}
