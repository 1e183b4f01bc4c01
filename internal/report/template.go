package report

// htmlTemplate is the self-contained report page. The embedded JSON payload
// replaces __DATA_PLACEHOLDER__; everything else is static.
const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>textspot report</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; line-height: 1.6; padding: 20px; background-color: #f9f9f9; }
        .container { max-width: 900px; margin: auto; background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        .header { display: flex; justify-content: space-between; align-items: center; border-bottom: 1px solid #eee; padding-bottom: 10px; margin-bottom: 20px; flex-wrap: wrap; gap: 10px; }
        .header h2 { margin: 0; }
        .selectors { display: flex; gap: 20px; align-items: center; }
        .selector-container label { margin-right: 10px; font-size: 14px; color: #555; }
        .selector { font-size: 14px; padding: 5px; border-radius: 4px; border: 1px solid #ccc; }
        .metadata-panel { font-size: 12px; color: #666; background: #fafafa; padding: 10px; border-radius: 4px; border: 1px solid #eee; margin-bottom: 20px; }
        .metadata-panel code { background: #eee; padding: 2px 4px; border-radius: 3px; }
        .text-display { white-space: pre-wrap; word-wrap: break-word; border: 1px solid #ddd; padding: 15px; border-radius: 4px; margin-bottom: 20px; background-color: #fff; max-height: 50vh; overflow-y: auto; }
        .highlight { position: relative; border-radius: 3px; padding: 2px 4px; cursor: default; display: inline; }
        .tooltip {
            visibility: hidden; opacity: 0; transition: opacity 0.2s;
            background: #333; color: #fff; text-align: left;
            border-radius: 4px; padding: 8px; position: absolute;
            z-index: 10; bottom: 125%; left: 50%;
            transform: translateX(-50%); font-size: 12px;
            width: max-content; max-width: 320px; box-shadow: 0 2px 6px rgba(0,0,0,0.3);
            white-space: normal;
        }
        .highlight:hover .tooltip { visibility: visible; opacity: 1; }
        .legend { margin-bottom: 20px; }
        .legend-item { display: inline-flex; align-items: center; margin-right: 15px; font-size: 14px; }
        .legend-color { width: 15px; height: 15px; border-radius: 3px; margin-right: 5px; }
        .no-result { color: #999; font-style: italic; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h2>Extraction Report</h2>
            <div class="selectors">
                <div class="selector-container">
                    <label for="doc-selector">Document:</label>
                    <select id="doc-selector" class="selector"></select>
                </div>
                <div class="selector-container">
                    <label for="model-selector">Model:</label>
                    <select id="model-selector" class="selector"></select>
                </div>
            </div>
        </div>
        <div id="content-area">
            <div class="metadata-panel" id="metadata-panel"></div>
            <div class="legend" id="legend"></div>
            <div class="text-display" id="text-display"></div>
        </div>
        <div id="no-result-area" style="display: none;" class="no-result">
            No result available for this document/model combination.
        </div>
    </div>

    <script type="application/json" id="textspot-data">
__DATA_PLACEHOLDER__
    </script>

    <script>
    (function() {
        function safeParse(id) {
            const el = document.getElementById(id);
            if (!el) return {};
            try { return JSON.parse(el.textContent || "{}"); }
            catch (err) { console.error("Failed to parse report JSON:", err); return {}; }
        }

        const data = safeParse('textspot-data');
        const docSelector = document.getElementById('doc-selector');
        const modelSelector = document.getElementById('model-selector');
        const metadataPanel = document.getElementById('metadata-panel');
        const legend = document.getElementById('legend');
        const textDisplay = document.getElementById('text-display');
        const contentArea = document.getElementById('content-area');
        const noResultArea = document.getElementById('no-result-area');

        const docIds = Object.keys(data).sort();

        function escapeHtml(unsafe) {
            if (typeof unsafe !== 'string') unsafe = String(unsafe);
            return unsafe.replace(/&/g, "&amp;").replace(/</g, "&lt;")
                         .replace(/>/g, "&gt;").replace(/"/g, "&quot;")
                         .replace(/'/g, "&#039;");
        }

        function populate(selector, values) {
            selector.innerHTML = '';
            values.forEach(v => {
                const opt = document.createElement('option');
                opt.value = v;
                opt.textContent = v;
                selector.appendChild(opt);
            });
        }

        function buildLegend(colorMap) {
            legend.innerHTML = '';
            Object.entries(colorMap || {}).forEach(([cls, color]) => {
                const item = document.createElement('div');
                item.className = 'legend-item';
                item.innerHTML = '<div class="legend-color" style="background-color:' + color + ';"></div>' + escapeHtml(cls);
                legend.appendChild(item);
            });
        }

        function tooltipFor(ext) {
            let html = '<strong>' + escapeHtml(ext.extraction_class) + '</strong>';
            const attrs = ext.attributes || {};
            for (const [k, v] of Object.entries(attrs)) {
                const display = (typeof v === 'object') ? JSON.stringify(v) : String(v);
                html += '<br>' + escapeHtml(k) + ': ' + escapeHtml(display);
            }
            return html;
        }

        function buildHighlighted(text, extractions, colorMap) {
            if (!text) return '';
            if (!Array.isArray(extractions) || extractions.length === 0) {
                return escapeHtml(text);
            }

            const bounds = new Set([0, text.length]);
            const spans = [];
            for (const ext of extractions) {
                if (!ext || !ext.char_interval) continue;
                const start = Math.max(0, Math.min(text.length, ext.char_interval.start));
                const end = Math.max(0, Math.min(text.length, ext.char_interval.end));
                if (start >= end) continue;
                bounds.add(start);
                bounds.add(end);
                spans.push({ext: ext, start: start, end: end});
            }

            const sorted = Array.from(bounds).sort((a, b) => a - b);
            let html = '';
            for (let i = 0; i < sorted.length - 1; i++) {
                const segStart = sorted[i], segEnd = sorted[i + 1];
                const segment = text.slice(segStart, segEnd);
                const covering = spans.filter(s => s.start <= segStart && s.end >= segEnd);
                if (covering.length === 0) {
                    html += escapeHtml(segment);
                    continue;
                }
                const top = covering[0];
                const color = (colorMap || {})[top.ext.extraction_class] || '#E8EAED';
                html += '<span class="highlight" style="background-color:' + color + ';">'
                    + escapeHtml(segment)
                    + '<span class="tooltip">' + tooltipFor(top.ext) + '</span></span>';
            }
            return html;
        }

        function render() {
            const docData = (data[docSelector.value] || {})[modelSelector.value];
            if (!docData) {
                contentArea.style.display = 'none';
                noResultArea.style.display = 'block';
                return;
            }
            contentArea.style.display = 'block';
            noResultArea.style.display = 'none';

            let metaHtml = '';
            for (const [k, v] of Object.entries(docData.metadata || {})) {
                const display = (typeof v === 'object') ? JSON.stringify(v) : String(v);
                metaHtml += '<strong>' + escapeHtml(k) + ':</strong> <code>' + escapeHtml(display) + '</code><br>';
            }
            metadataPanel.innerHTML = metaHtml;

            buildLegend(docData.colorMap);
            textDisplay.innerHTML = buildHighlighted(docData.text || '', docData.extractions || [], docData.colorMap || {});
        }

        docSelector.addEventListener('change', function() {
            populate(modelSelector, Object.keys(data[docSelector.value] || {}).sort());
            render();
        });
        modelSelector.addEventListener('change', render);

        if (docIds.length > 0) {
            populate(docSelector, docIds);
            docSelector.value = docIds[0];
            populate(modelSelector, Object.keys(data[docIds[0]] || {}).sort());
            render();
        } else {
            noResultArea.textContent = "No documents were provided.";
            noResultArea.style.display = 'block';
        }
    })();
    </script>
</body>
</html>
`
