package transcription

// BuildPrompt returns the extraction prompt. It fixes the two field groups
// and the normalization rules for dates, altitudes and multi-line text.
func BuildPrompt() string {
	return `You are transcribing a herbarium specimen label. The label is located in the bottom half of the image
and the text is in English, although it may contain botanical terms that are not. Ignore any text that is
not part of the label.

The structured fields are usually in the top part of the label and the free text description below them.
There are multiple label layouts, so not every field is always present.

Respond with ONLY a JSON object with exactly this structure. Every value must be a string. If a field is
not present on the label, set it to "" instead of omitting it. If the image contains no label at all,
return the structure with every field set to "".

{
  "label": {
    "district": "District or region, can be named Regio",
    "Grid reference": "Grid reference, can be named Grid.Ref",
    "Date": "Date of collection, can be named Date or Anno. Use the format YYYY-MM-DD",
    "Altitude": "Altitude, can be named Alt., Altitude or Elevation. Use the format 1234 m",
    "collector_name": "Name of the collector, can be named Coll. or Collectors",
    "collector_number": "Collector number, can be named Collector's No., Collector No. or Collector's Number",
    "name": "Name of the plant, in the upper part of the label below the fields above",
    "description": "Description of the plant below the name, separated by a line or empty space. Join multiple lines with \\n",
    "plant_id": "Text under the barcode on a separate label, starts with SRGH. It may be rotated 90 degrees and sit above or beside the main label"
  },
  "extracted_metadata": {
    "Habitat": "Habitat information extracted from the description",
    "Geographic_information": "Geographic information extracted from the description",
    "Flowering state": "Flowering state extracted from the description",
    "Phenotype": "Any phenotype-related information extracted from the description"
  }
}`
}
