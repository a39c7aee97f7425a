package ai

// BinSizePrompt asks for a Gridfinity footprint per item. The item list is
// appended as JSON lines.
const BinSizePrompt = `
You help people organise a home inventory in Gridfinity storage.
A Gridfinity grid unit is 42mm x 42mm. For every item below, suggest the bin
footprint in grid units (width x depth) that holds the item comfortably.

### RULES
1. Use whole units between 1 and 6 per axis.
2. Prefer the smallest footprint that fits; small parts usually need 1x1.
3. If dimensions are missing, infer a typical size from the name and description.

### OUTPUT FORMAT
Return only a JSON object:
{
  "recommendations": [
    {"item_id": "<id>", "recommended_width_units": 1, "recommended_depth_units": 2, "reasoning": "short reason"}
  ]
}

### ITEMS
`
