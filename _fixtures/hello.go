package main

import "fmt"

func sleepytime() {
	fmt.Println("setbreakpoint")
}

func main() {
	sleepytime()
	fmt.Println("done")
}
