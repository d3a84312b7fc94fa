package main

import "kbase/cmd"

func main() {
	cmd.Execute()
}
