package model

// LinkSpec connects one region output to another region's input.
type LinkSpec struct {
	SrcRegion  string
	SrcOutput  string
	DestRegion string
	DestInput  string
}
