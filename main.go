package main

import "wardrobe-backend/cmd"

func main() {
	cmd.Run()
}
