// Package link manages the node's wired interface through the NetworkManager port.
package link
