package main

import "fmt"

func work(n int) int {
	total := 0
	for i := 0; i < n; i++ { // line 7
		total += i // line 8
	}
	return total // line 10
}

func main() {
	result := work(5)
	fmt.Println(result)
}
