package main

import "github.com/keswickschool/budget-dashboard/cmd"

func main() {
	cmd.Execute()
}
