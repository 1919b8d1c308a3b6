package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Settings []*settingsBlock `hcl:"settings,block"`
	Pages    []*pageBlock     `hcl:"page,block"`
	Remain   hcl.Body         `hcl:",remain"`
}

// settingsBlock is the `settings` block. Unset attributes keep their defaults.
type settingsBlock struct {
	Base    *string `hcl:"base,optional"`
	Timeout *string `hcl:"timeout,optional"`
	Tag     *string `hcl:"tag,optional"`
	Workers *int    `hcl:"workers,optional"`
}

// pageBlock is a `page "<name>"` block.
type pageBlock struct {
	Name   string         `hcl:"name,label"`
	Source string         `hcl:"source"`
	Output string         `hcl:"output,optional"`
	Params hcl.Expression `hcl:"params,optional"`
}
