package main

import "github.com/chris-de-leon-archive/block-feed-prototype-sub001/internal/cli"

func main() {
	cli.Execute()
}
