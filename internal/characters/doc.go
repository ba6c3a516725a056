// Package characters loads per-character profiles: trained model adapters,
// voice preferences, and the approved reference image pool location.
package characters
