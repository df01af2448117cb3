package main

import "github.com/mashehu/setup-nextflow/cmd/setup-nextflow/cmd"

func main() {
	cmd.Execute()
}
