package main

import "github.com/Togather-Foundation/serendipity/cmd/server/cmd"

func main() {
	cmd.Execute()
}
