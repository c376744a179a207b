package main

import "github.com/jchavanton/sign-xcorr/cmd"

func main() {
	cmd.Execute()
}
