package loader

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/nate-maxwell/templar/api"
)

// ParseHCL decodes HCL definitions of the form
//
//	variables = { ROOT = "/mnt/projects" }
//
//	template "shot" {
//	  pattern = "seq/<seq>/<shot:04>"
//	  base    = "show"
//	}
//
// filename is used for diagnostics and must end in ".hcl".
func ParseHCL(filename string, data []byte) (*api.Definitions, error) {
	var defs api.Definitions
	if err := hclsimple.Decode(filename, data, nil, &defs); err != nil {
		return nil, fmt.Errorf("parse hcl: %w", err)
	}
	return &defs, nil
}
