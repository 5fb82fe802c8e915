package main

import "github.com/fraugster/rowstream/cmd/rowstream-tool/cmds"

func main() {
	cmds.Execute()
}
