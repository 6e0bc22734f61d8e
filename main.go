/*
Copyright © 2025 tieubaoca
*/
package main

import (
	"github.com/joho/godotenv"
	"github.com/tieubaoca/ragchat-be/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	// A missing .env file is fine in deployments that configure through
	// real environment variables.
	_ = godotenv.Load()
}
