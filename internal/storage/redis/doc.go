// Package redis provides the shared second tier of the inference response
// cache so several Sentinel-X instances answer a repeated prompt identically.
package redis
