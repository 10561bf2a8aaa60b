package main

import "missingfonts/internal/missingfonts"

func main() {
	missingfonts.Main()
}
