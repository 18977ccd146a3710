package dataType

const IPForestVersion = "0.1.0"

type UserRequest struct {
	RemoteIP  string
	Uri       string
	UserAgent string
	Host      string
}

// CidrBlock is an address plus a contiguous leading-ones mask.
type CidrBlock struct {
	Addr uint32
	Mask uint32
}

type IPSetRule struct {
	Name     string `yaml:"name" validate:"required"`
	File     string `yaml:"file" validate:"required"`
	MaxNodes int    `yaml:"max_nodes" validate:"gte=0"`
}

type TreeStats struct {
	Used int `json:"used"`
	Free int `json:"free"`
}
