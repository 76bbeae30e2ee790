// Command ladle drives the recipe service from the terminal: submit a
// video for recipe extraction and watch it finish, list processing jobs,
// and toggle likes.
package main
