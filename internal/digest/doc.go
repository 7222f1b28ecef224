// Package digest posts a scheduled summary of recently saved records to the
// notification channel.
package digest
